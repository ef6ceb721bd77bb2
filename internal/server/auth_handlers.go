package server

import (
	"errors"
	"strconv"
	"time"

	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
	AvatarURL   string `json:"avatar_url"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Account details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return s.respondWithToken(c, fiber.StatusCreated, user)
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate with e-mail and password and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return s.respondWithToken(c, fiber.StatusOK, user)
}

// Logout handles POST /api/auth/logout. The presented token is revoked until
// it would have expired.
// @Summary Logout
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("tokenClaims").(*middleware.TokenClaims)
	if ok {
		if err := middleware.RevokeToken(c.UserContext(), claims.ID, claims.ExpiresAt); err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Me handles GET /api/auth/me
// @Summary Current account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), currentUserID(c))
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			// The account behind a still-valid token was deleted.
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Account no longer exists"))
		}
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

func (s *Server) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, expiresAt, err := s.generateToken(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.Status(status).JSON(AuthResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// generateToken signs an HS256 token for userID.
func (s *Server) generateToken(userID uint) (string, time.Time, error) {
	if s.config.JWTSecret == "" {
		return "", time.Time{}, errors.New("JWT secret not configured")
	}

	ttl := time.Duration(s.config.JWTTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": middleware.TokenIssuer,
		"aud": middleware.TokenAudience,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}
