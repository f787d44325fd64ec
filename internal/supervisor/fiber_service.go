package supervisor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FiberService adapts a fiber app to suture.Service.
type FiberService struct {
	app             *fiber.App
	addr            string
	shutdownTimeout time.Duration
}

func NewFiberService(app *fiber.App, addr string, shutdownTimeout time.Duration) *FiberService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &FiberService{app: app, addr: addr, shutdownTimeout: shutdownTimeout}
}

func (s *FiberService) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(s.shutdownTimeout); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *FiberService) String() string { return "http-server" }
