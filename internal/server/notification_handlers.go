package server

import (
	"fittedin/internal/models"
	"fittedin/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 50, max 100)"
// @Param offset query int false "Offset"
// @Param unread_only query bool false "Only unread notifications"
// @Success 200 {object} service.NotificationPage
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	page := parsePagination(c)
	res, err := s.notificationService.List(c.UserContext(), service.ListNotificationsInput{
		UserID:     currentUserID(c),
		Limit:      page.Limit,
		Offset:     page.Offset,
		UnreadOnly: c.QueryBool("unread_only", false),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// GetUnreadCount handles GET /api/notifications/unread-count
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{unread_count=int}
// @Router /notifications/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	n, err := s.notificationService.UnreadCount(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

// MarkNotificationRead handles PUT /api/notifications/:id/read
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} models.Notification
// @Failure 404 {object} models.ErrorResponse
// @Router /notifications/{id}/read [put]
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	n, err := s.notificationService.MarkRead(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(n)
}

// MarkAllNotificationsRead handles PUT /api/notifications/read-all
// @Summary Mark every notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{updated=int}
// @Router /notifications/read-all [put]
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.notificationService.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

// DeleteNotification handles DELETE /api/notifications/:id
// @Summary Delete a notification
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /notifications/{id} [delete]
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification deleted"})
}
