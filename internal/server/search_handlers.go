package server

import (
	"moments/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Search handles GET /api/search?q=...&filter=all|moments|users
func (s *Server) Search(c *fiber.Ctx) error {
	filter, err := models.ParseSearchFilter(c.Query("filter"))
	if err != nil {
		return respondServiceError(c, err)
	}

	results, err := s.searchService.Search(c.UserContext(), c.Query("q"), filter)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(results)
}
