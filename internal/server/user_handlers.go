package server

import (
	"moments/internal/middleware"
	"moments/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, ok := s.userService.GetUser(c.UserContext(), id)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", id))
	}
	return c.JSON(user)
}

// GetUserByUsername handles GET /api/users/by-username/:username
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	username := c.Params("username")

	user, ok := s.userService.GetUserByUsername(c.UserContext(), username)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", username))
	}
	return c.JSON(user)
}

// GetUserMoments handles GET /api/users/:id/moments
func (s *Server) GetUserMoments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(s.momentService.GetUserMoments(c.UserContext(), id))
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(s.userService.GetFollowers(c.UserContext(), id))
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(s.userService.GetFollowing(c.UserContext(), id))
}

// GetFollowCounts handles GET /api/users/:id/follow-counts
func (s *Server) GetFollowCounts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return c.JSON(s.userService.GetFollowCounts(c.UserContext(), id))
}

// IsFollowing handles GET /api/users/:id/is-following/:targetId
func (s *Server) IsFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "targetId")
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{
		"is_following": s.userService.IsFollowing(c.UserContext(), id, targetID),
	})
}

// GetProfile handles GET /api/profiles/:username. The viewer is the session
// user, if any.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	username := c.Params("username")

	profile, ok := s.userService.GetProfile(c.UserContext(), middleware.SessionFrom(c), username)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("User", username))
	}
	return c.JSON(profile)
}

// Follow handles POST /api/users/:id/follow
func (s *Server) Follow(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	follow, err := s.userService.Follow(c.UserContext(), middleware.SessionFrom(c), targetID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(follow)
}
