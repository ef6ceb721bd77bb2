package server

import (
	"fittedin/internal/models"
	"fittedin/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetGoals handles GET /api/goals
// @Summary List my goals
// @Tags goals
// @Produce json
// @Security BearerAuth
// @Param status query string false "active, completed, paused or cancelled"
// @Param category query string false "Goal category"
// @Success 200 {object} object{goals=[]models.Goal}
// @Failure 400 {object} models.ErrorResponse
// @Router /goals [get]
func (s *Server) GetGoals(c *fiber.Ctx) error {
	goals, err := s.goalService.List(c.UserContext(), currentUserID(c), c.Query("status"), c.Query("category"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"goals": goals})
}

// GetGoalSummary handles GET /api/goals/summary
// @Summary Goal statistics
// @Tags goals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.GoalSummary
// @Router /goals/summary [get]
func (s *Server) GetGoalSummary(c *fiber.Ctx) error {
	summary, err := s.goalService.Summary(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summary)
}

// GetGoal handles GET /api/goals/:id
// @Summary Get a goal
// @Tags goals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Goal ID"
// @Success 200 {object} models.Goal
// @Failure 404 {object} models.ErrorResponse
// @Router /goals/{id} [get]
func (s *Server) GetGoal(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	goal, err := s.goalService.Get(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(goal)
}

// CreateGoal handles POST /api/goals
// @Summary Create a goal
// @Tags goals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateGoalInput true "Goal"
// @Success 201 {object} models.Goal
// @Failure 400 {object} models.ErrorResponse
// @Router /goals [post]
func (s *Server) CreateGoal(c *fiber.Ctx) error {
	var in service.CreateGoalInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	in.UserID = currentUserID(c)

	goal, err := s.goalService.Create(c.UserContext(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(goal)
}

// UpdateGoal handles PUT /api/goals/:id
// @Summary Update a goal
// @Description Setting current_value records progress; setting status to completed notifies the owner.
// @Tags goals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Goal ID"
// @Param request body service.UpdateGoalInput true "Fields to change"
// @Success 200 {object} models.Goal
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /goals/{id} [put]
func (s *Server) UpdateGoal(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.UpdateGoalInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	in.UserID = currentUserID(c)
	in.GoalID = id

	goal, err := s.goalService.Update(c.UserContext(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(goal)
}

// DeleteGoal handles DELETE /api/goals/:id
// @Summary Delete a goal
// @Tags goals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Goal ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /goals/{id} [delete]
func (s *Server) DeleteGoal(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.goalService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Goal deleted successfully"})
}
