package server

import (
	"log/slog"

	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateAccountRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

type updateProfileRequest struct {
	Pronouns     *string `json:"pronouns"`
	Bio          *string `json:"bio"`
	Location     *string `json:"location"`
	FitnessLevel *string `json:"fitness_level"`
	PrimaryGoals *string `json:"primary_goals"`
	Skills       *string `json:"skills"`
}

// GetMyAccount handles GET /api/users/me
// @Summary Get my account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /users/me [get]
func (s *Server) GetMyAccount(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyAccount handles PUT /api/users/me
// @Summary Update my account
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateAccountRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyAccount(c *fiber.Ctx) error {
	var req updateAccountRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	user, err := s.userService.UpdateAccount(c.UserContext(), service.UpdateAccountInput{
		UserID:      currentUserID(c),
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// DeleteMyAccount handles DELETE /api/users/me
// @Summary Delete my account
// @Description Removes the account and everything it owns, then revokes the token used.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/me [delete]
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	if err := s.userService.DeleteAccount(c.UserContext(), currentUserID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	if claims, ok := c.Locals("tokenClaims").(*middleware.TokenClaims); ok {
		if err := middleware.RevokeToken(c.UserContext(), claims.ID, claims.ExpiresAt); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token of deleted account",
				slog.String("error", err.Error()))
		}
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}

// GetUser handles GET /api/users/:id
// @Summary Get a member
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.PublicUser
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	public := user.Public()
	if id != currentUserID(c) {
		public.Email = ""
	}
	return c.JSON(public)
}

// GetMyProfile handles GET /api/profiles/me
// @Summary Get my profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ProfileView
// @Router /profiles/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	view, err := s.profileService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(view)
}

// UpdateMyProfile handles PUT /api/profiles/me
// @Summary Update my profile
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateProfileRequest true "Fields to change"
// @Success 200 {object} service.ProfileView
// @Failure 400 {object} models.ErrorResponse
// @Router /profiles/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	view, err := s.profileService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:       currentUserID(c),
		Pronouns:     req.Pronouns,
		Bio:          req.Bio,
		Location:     req.Location,
		FitnessLevel: req.FitnessLevel,
		PrimaryGoals: req.PrimaryGoals,
		Skills:       req.Skills,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(view)
}

// GetUserProfile handles GET /api/profiles/:userId
// @Summary Get a member's profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} service.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{userId} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	view, err := s.profileService.GetPublicProfile(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(view)
}
