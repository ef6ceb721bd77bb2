package server

import (
	"fittedin/internal/models"
	"fittedin/internal/service"

	"github.com/gofiber/fiber/v2"
)

type connectionRequest struct {
	ReceiverID uint `json:"receiver_id" validate:"required,gt=0"`
}

// SendConnectionRequest handles POST /api/connections
// @Summary Send a connection request
// @Description Seeded receivers accept immediately; the returned row is then already accepted.
// @Tags connections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body connectionRequest true "Receiver"
// @Success 201 {object} object{message=string,connection=models.Connection}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /connections [post]
func (s *Server) SendConnectionRequest(c *fiber.Ctx) error {
	var req connectionRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	conn, err := s.connectionService.SendConnectionRequest(c.UserContext(), currentUserID(c), req.ReceiverID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	message := "Connection request sent successfully"
	if conn.Status == models.ConnectionStatusAccepted {
		message = "Connection request accepted automatically"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    message,
		"connection": conn,
	})
}

// AcceptConnectionRequest handles PUT /api/connections/:id/accept
// @Summary Accept a connection request
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param id path int true "Connection ID"
// @Success 200 {object} object{message=string,connection=models.Connection}
// @Failure 404 {object} models.ErrorResponse
// @Router /connections/{id}/accept [put]
func (s *Server) AcceptConnectionRequest(c *fiber.Ctx) error {
	return s.resolveConnection(c, service.DecisionAccept, "Connection request accepted successfully")
}

// RejectConnectionRequest handles PUT /api/connections/:id/reject
// @Summary Reject a connection request
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param id path int true "Connection ID"
// @Success 200 {object} object{message=string,connection=models.Connection}
// @Failure 404 {object} models.ErrorResponse
// @Router /connections/{id}/reject [put]
func (s *Server) RejectConnectionRequest(c *fiber.Ctx) error {
	return s.resolveConnection(c, service.DecisionReject, "Connection request rejected successfully")
}

func (s *Server) resolveConnection(c *fiber.Ctx, decision service.Decision, message string) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	conn, err := s.connectionService.ResolveConnectionRequest(c.UserContext(), currentUserID(c), id, decision)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":    message,
		"connection": conn,
	})
}

// GetConnections handles GET /api/connections
// @Summary List connections
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param status query string false "accepted (default), pending, rejected or blocked"
// @Success 200 {object} object{connections=[]service.ConnectionView}
// @Failure 400 {object} models.ErrorResponse
// @Router /connections [get]
func (s *Server) GetConnections(c *fiber.Ctx) error {
	conns, err := s.connectionService.ListConnections(c.UserContext(), currentUserID(c), c.Query("status"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"connections": conns})
}

// GetPendingRequests handles GET /api/connections/pending
// @Summary Pending requests
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.PendingRequests
// @Router /connections/pending [get]
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	pending, err := s.connectionService.ListPendingRequests(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(pending)
}

// GetConnectionStatus handles GET /api/connections/status/:userId
// @Summary Connection status with another member
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Other user ID"
// @Success 200 {object} service.ConnectionStatusResult
// @Router /connections/status/{userId} [get]
func (s *Server) GetConnectionStatus(c *fiber.Ctx) error {
	otherID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	status, err := s.connectionService.GetConnectionStatus(c.UserContext(), currentUserID(c), otherID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(status)
}

// SearchUsers handles GET /api/connections/search
// @Summary Find members to connect with
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param q query string false "Matches display name or e-mail"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} service.UserSearchResult
// @Router /connections/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	page := parsePagination(c)
	res, err := s.connectionService.SearchConnectableUsers(c.UserContext(), currentUserID(c), c.Query("q"), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// AutoAcceptPending handles POST /api/connections/auto-accept-pending
// @Summary Run the seeded auto-accept sweep
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.SweepResult
// @Router /connections/auto-accept-pending [post]
func (s *Server) AutoAcceptPending(c *fiber.Ctx) error {
	res, err := s.connectionService.ProcessPendingForSeededAccounts(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// RemoveConnection handles DELETE /api/connections/:id
// @Summary Remove a connection
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param id path int true "Connection ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /connections/{id} [delete]
func (s *Server) RemoveConnection(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.connectionService.RemoveConnection(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Connection removed successfully"})
}

// BlockUser handles POST /api/connections/block/:userId
// @Summary Block a member
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} object{message=string,connection=models.Connection}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /connections/block/{userId} [post]
func (s *Server) BlockUser(c *fiber.Ctx) error {
	otherID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	conn, err := s.connectionService.BlockUser(c.UserContext(), currentUserID(c), otherID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":    "User blocked",
		"connection": conn,
	})
}

// UnblockUser handles DELETE /api/connections/block/:userId
// @Summary Unblock a member
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /connections/block/{userId} [delete]
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	otherID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	if err := s.connectionService.UnblockUser(c.UserContext(), currentUserID(c), otherID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unblocked"})
}
