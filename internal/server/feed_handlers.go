package server

import (
	"moments/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

const defaultFeedLimit = 50

// GetFeedItems handles GET /api/feed/items
func (s *Server) GetFeedItems(c *fiber.Ctx) error {
	p := parsePagination(c, defaultFeedLimit)
	return c.JSON(newPage(s.feedService.GetFeedItems(c.UserContext()), p))
}

// GetFollowingFeed handles GET /api/feed/following. It needs a session.
func (s *Server) GetFollowingFeed(c *fiber.Ctx) error {
	p := parsePagination(c, defaultFeedLimit)
	items, err := s.feedService.GetFollowingFeed(c.UserContext(), middleware.SessionFrom(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(newPage(items, p))
}

// GetFeedCards handles GET /api/feed/cards
func (s *Server) GetFeedCards(c *fiber.Ctx) error {
	p := parsePagination(c, defaultFeedLimit)
	return c.JSON(newPage(s.feedService.GetFeedCards(c.UserContext(), middleware.SessionFrom(c)), p))
}
