// Package authz decides whether a user may perform an action on a module. Per-user permission
// rows override the role policy for their module; everything else falls back to casbin.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Actions used by the route table.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds the authorizer from the policy file at policyPath, or the embedded policy when
// the path is empty.
func New(policyPath string) (*Authorizer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	var e *casbin.SyncedEnforcer
	if policyPath != "" {
		if _, statErr := os.Stat(policyPath); statErr != nil {
			return nil, fmt.Errorf("casbin policy %s: %w", policyPath, statErr)
		}
		e, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
	} else {
		e, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(e, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	return &Authorizer{enforcer: e}, nil
}

func loadPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch {
		case parts[0] == "p" && len(parts) >= 4:
			if _, err := e.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) >= 3:
			if _, err := e.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
			}
		}
	}
	return nil
}

// Authorize reports whether user may perform action on module.
func (a *Authorizer) Authorize(user *models.User, module, action string) bool {
	if user == nil || !user.IsActive {
		return false
	}
	for _, p := range user.Permissions {
		if p.Module == module {
			return p.Allows(action)
		}
	}
	ok, err := a.enforcer.Enforce(string(user.Role), module, action)
	return err == nil && ok
}

// RequirePermission guards a route. It must run after auth.JWTMiddleware.
func (a *Authorizer) RequirePermission(module, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := auth.CurrentUser(c)
		if !ok {
			return apperr.Unauthorized("not authenticated")
		}
		if !a.Authorize(user, module, action) {
			return apperr.Forbidden(fmt.Sprintf("%s cannot %s %s", user.Role, action, module))
		}
		return c.Next()
	}
}
