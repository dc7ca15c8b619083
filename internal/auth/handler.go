package auth

import (
	"errors"
	"strings"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/logger"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Handlers struct {
	db      *gorm.DB
	secret  string
	limiter *LoginLimiter
	audit   audit.Recorder
	log     *logger.Logger
}

func NewHandlers(db *gorm.DB, secret string, limiter *LoginLimiter, rec audit.Recorder, log *logger.Logger) *Handlers {
	return &Handlers{db: db, secret: secret, limiter: limiter, audit: rec, log: log}
}

// POST /api/auth/register-admin bootstraps the first admin account and is
// refused once one exists.
func (h *Handlers) RegisterAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Name = strings.TrimSpace(body.Name)

		if body.Email == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
		}
		if len(body.Password) < 8 {
			return fiber.NewError(fiber.StatusBadRequest, "password must be at least 8 characters")
		}

		var count int64
		if err := h.db.WithContext(c.UserContext()).Model(&models.User{}).
			Where("role = ?", models.RoleAdmin).
			Count(&count).Error; err != nil {
			h.log.Errorf("AUTH", "count admins: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "an admin account already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			Active:       true,
		}
		if err := h.db.WithContext(c.UserContext()).Create(&user).Error; err != nil {
			h.log.Errorf("AUTH", "create admin: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not create user")
		}

		h.log.Infof("AUTH", "bootstrap admin %s created", user.Email)
		return c.Status(fiber.StatusCreated).JSON(userResponse(&user))
	}
}

// POST /api/auth/login
func (h *Handlers) Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !h.limiter.Allow(c.IP()) {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many login attempts, try again later")
		}

		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := h.db.WithContext(c.UserContext()).Where("email = ?", body.Email).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				h.log.Errorf("AUTH", "load user: %v", err)
			}
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}
		if !user.Active {
			return fiber.NewError(fiber.StatusUnauthorized, "account is disabled")
		}

		token, err := GenerateToken(h.secret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		h.audit.Record(c.UserContext(), audit.LogOptions{
			UserID:      user.ID,
			UserName:    user.Name,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionLogin,
			Description: "Logged in",
			Metadata:    map[string]any{"ip": c.IP()},
		})

		return c.JSON(fiber.Map{
			"token": token,
			"user":  userResponse(&user),
		})
	}
}

// GET /api/auth/me
func (h *Handlers) Me() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := h.db.WithContext(c.UserContext()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "user no longer exists")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
		}

		return c.JSON(userResponse(&user))
	}
}
