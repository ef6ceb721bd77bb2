package server

import (
	"fittedin/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetActivities handles GET /api/activities
// @Summary My activity log
// @Tags activities
// @Produce json
// @Security BearerAuth
// @Param type query string false "Activity type filter"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} service.ActivityPage
// @Router /activities [get]
func (s *Server) GetActivities(c *fiber.Ctx) error {
	page := parsePagination(c)
	res, err := s.activityService.ListForUser(c.UserContext(), currentUserID(c),
		models.ActivityType(c.Query("type")), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// GetActivityFeed handles GET /api/activities/feed
// @Summary Activity of me and my connections
// @Tags activities
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} service.ActivityPage
// @Router /activities/feed [get]
func (s *Server) GetActivityFeed(c *fiber.Ctx) error {
	page := parsePagination(c)
	res, err := s.activityService.Feed(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}
