package classroom

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// DefaultContextKey is where verified claims live in the fiber context.
const DefaultContextKey = "identity"

// GateConfig configures the authentication gate middleware.
type GateConfig struct {
	// TokenService validates raw tokens. Required.
	TokenService TokenService
	// ContextKey is where claims are stored in fiber Locals.
	ContextKey string
	// AuthScheme is the expected Authorization scheme.
	AuthScheme string
	Logger     Logger
}

// RequireAuth is the authentication gate: it extracts the bearer token,
// verifies it, and binds the identity to the request context. It is
// side-effect free beyond context binding and never touches persistence.
// Missing, malformed, invalid and expired tokens all surface as the same
// unauthorized outcome; the distinction is logged only.
func RequireAuth(cfg GateConfig) fiber.Handler {
	if cfg.TokenService == nil {
		panic("CLASSROOM: auth gate configuration: TokenService is required.")
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}
	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		raw, err := TokenFromHeader(c.Get(fiber.HeaderAuthorization), cfg.AuthScheme)
		if err != nil {
			return err
		}

		claims, err := cfg.TokenService.Validate(raw)
		if err != nil {
			if IsTokenExpiredError(err) {
				cfg.Logger.Info("auth gate rejected expired token", "path", c.Path())
				return ErrTokenExpired
			}

			var richErr *errors.Error
			if errors.As(err, &richErr) && richErr.Category == errors.CategoryInternal {
				// configuration fault (e.g. missing signing key), not a bad token
				cfg.Logger.Error("auth gate internal error", "error", err)
				return richErr
			}

			cfg.Logger.Info("auth gate rejected token", "path", c.Path(), "error", err)
			return ErrTokenMalformed
		}

		c.Locals(cfg.ContextKey, claims)
		c.SetUserContext(WithClaimsContext(c.UserContext(), claims))

		return c.Next()
	}
}

// RequireRole is the role guard, composed after RequireAuth: it rejects
// identities whose role lacks the capability. Guards are independent and
// order-insensitive among themselves, but the auth gate must run first so an
// identity is bound.
func RequireRole(role UserRole, contextKey ...string) fiber.Handler {
	key := DefaultContextKey
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}

	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromFiber(c, key)
		if !ok {
			return ErrMissingToken
		}

		if !claims.HasRole(role) {
			return errors.New(ErrRoleRequired.Message, errors.CategoryAuthz).
				WithTextCode(TextCodeRoleRequired).
				WithCode(errors.CodeForbidden).
				WithMetadata(map[string]any{
					"required_role": string(role),
				})
		}

		return c.Next()
	}
}

// ClaimsFromFiber extracts the bound AuthClaims from the fiber context.
func ClaimsFromFiber(c *fiber.Ctx, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// TokenFromHeader extracts a bearer token from a raw Authorization header.
func TokenFromHeader(header, authScheme string) (string, error) {
	header = strings.TrimSpace(header)
	l := len(authScheme)
	if header == "" || len(header) <= l+1 || !strings.EqualFold(header[:l], authScheme) {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(header[l:]), nil
}
