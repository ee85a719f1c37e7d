package server

import (
	"moments/internal/middleware"
	"moments/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMoment handles GET /api/moments/:id
func (s *Server) GetMoment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	moment, ok := s.momentService.GetMoment(c.UserContext(), id)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Moment", id))
	}
	return c.JSON(moment)
}

// GetMomentDetail handles GET /api/moments/:id/detail
func (s *Server) GetMomentDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, ok := s.momentService.GetMomentDetail(c.UserContext(), id)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Moment", id))
	}
	return c.JSON(detail)
}

// GetMomentRSVPs handles GET /api/moments/:id/rsvps
func (s *Server) GetMomentRSVPs(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(s.momentService.GetMomentRSVPs(c.UserContext(), id))
}

// GetRSVPCount handles GET /api/moments/:id/rsvp-count
func (s *Server) GetRSVPCount(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{
		"moment_id": id,
		"going":     s.momentService.GetRSVPCount(c.UserContext(), id),
	})
}

// CreateMoment handles POST /api/moments
func (s *Server) CreateMoment(c *fiber.Ctx) error {
	var draft models.MomentDraft
	if err := c.BodyParser(&draft); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	moment, err := s.momentService.CreateMoment(c.UserContext(), middleware.SessionFrom(c), draft)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(moment)
}

// RSVP handles POST /api/moments/:id/rsvp
func (s *Server) RSVP(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Status models.RSVPStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	rsvp, err := s.momentService.RSVP(c.UserContext(), middleware.SessionFrom(c), id, req.Status)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rsvp)
}
