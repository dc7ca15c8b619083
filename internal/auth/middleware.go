package auth

import (
	"context"
	"errors"
	"strings"

	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxUserNameKey = "user_name"
)

func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxUserNameKey, claims.Name)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "role missing from token")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to perform this action")
	}
}

// CurrentUserID reads the authenticated staff id set by JWTMiddleware.
func CurrentUserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || id == 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "user missing from token")
	}
	return id, nil
}

// SessionValidator accepts a token only while its staff account is active.
// Long-lived channels such as the event stream use it instead of the header
// middleware.
type SessionValidator struct {
	db     *gorm.DB
	secret string
}

func NewSessionValidator(db *gorm.DB, secret string) *SessionValidator {
	return &SessionValidator{db: db, secret: secret}
}

func (v *SessionValidator) Validate(ctx context.Context, token string) (*JWTCustomClaims, error) {
	claims, err := ParseToken(v.secret, token)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := v.db.WithContext(ctx).Select("id", "active").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("unknown user")
		}
		return nil, err
	}
	if !user.Active {
		return nil, errors.New("user is inactive")
	}
	return claims, nil
}
