package realtime

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/logging"
)

type ServerConfig struct {
	Addr           string
	JWTSecret      string
	RestaurantID   string
	AllowedOrigins []string
	// LoadUser, when set, rejects tokens of deactivated or deleted users at connect time.
	LoadUser auth.UserLoader
	// ConnectsPerMinute caps websocket upgrades per client IP. Zero means 30.
	ConnectsPerMinute int
}

// Server exposes the hub over HTTP on its own port.
type Server struct {
	cfg      ServerConfig
	hub      *Hub
	upgrader websocket.Upgrader
	http     *http.Server
}

func NewServer(cfg ServerConfig, hub *Hub) *Server {
	if cfg.ConnectsPerMinute <= 0 {
		cfg.ConnectsPerMinute = 30
	}
	s := &Server{cfg: cfg, hub: hub}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.With(httprate.LimitByIP(s.cfg.ConnectsPerMinute, time.Minute)).Get("/ws", s.handleWebSocket)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.ClientCount()})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid or expired token"})
		return
	}

	role := claims.Role
	if s.cfg.LoadUser != nil {
		user, err := s.cfg.LoadUser(r.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "user not found or inactive"})
			return
		}
		role = user.Role
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	NewClient(s.hub, conn, claims.UserID, role, s.cfg.RestaurantID).Start()
}

// checkOrigin accepts listed origins and clients that send none, such as kitchen tablets
// running a native app. Those still need a valid token.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unlisted origin")
	return false
}

// Serve listens until ctx is cancelled and then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	logging.Info().Str("addr", ln.Addr().String()).Msg("realtime server listening")

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("realtime server shutdown")
		}
		return ctx.Err()
	}
}

func (s *Server) String() string { return "realtime-server" }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
