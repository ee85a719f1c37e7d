// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the HTTP API.
package middleware

import (
	"errors"
	"strings"
	"time"

	"moments/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Locals keys set by the auth middleware.
const (
	LocalUserID  = "userID"
	LocalSession = "session"
)

var (
	errMissingToken = errors.New("token required")
	errBadHeader    = errors.New("invalid authorization header format")
)

// SessionAuth turns HS256 session tokens into models.Session values.
type SessionAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionAuth creates a SessionAuth. ttl bounds tokens it issues.
func NewSessionAuth(secret string, ttl time.Duration) *SessionAuth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionAuth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueToken signs a session token whose subject is userID.
func (a *SessionAuth) IssueToken(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken validates tokenString and returns the session it names.
func (a *SessionAuth) ParseToken(tokenString string) (models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return models.Session{}, errors.New("invalid or expired token")
	}

	// Extract user ID from "sub" claim (subject claim per RFC 7519)
	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return models.Session{}, errors.New("invalid token structure - missing subject")
	}
	return models.Session{UserID: sub}, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}
	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errBadHeader
	}
	return parts[1], nil
}

func setSession(c *fiber.Ctx, session models.Session) {
	c.Locals(LocalSession, session)
	c.Locals(LocalUserID, session.UserID)
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func (a *SessionAuth) AuthRequired(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(capitalize(err.Error())))
	}
	session, err := a.ParseToken(token)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(capitalize(err.Error())))
	}
	setSession(c, session)
	return c.Next()
}

// OptionalSession attaches a session when a valid bearer token is present and
// otherwise continues as an anonymous viewer.
func (a *SessionAuth) OptionalSession(c *fiber.Ctx) error {
	if token, err := bearerToken(c); err == nil {
		if session, err := a.ParseToken(token); err == nil {
			setSession(c, session)
		}
	}
	return c.Next()
}

// WebSocketAuthRequired validates the token from the "token" query parameter,
// falling back to the Authorization header.
func (a *SessionAuth) WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		var err error
		if token, err = bearerToken(c); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(capitalize(err.Error())))
		}
	}
	session, err := a.ParseToken(token)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(capitalize(err.Error())))
	}
	setSession(c, session)
	return c.Next()
}

// SessionFrom returns the session attached by the auth middleware, or an
// anonymous one.
func SessionFrom(c *fiber.Ctx) models.Session {
	if s, ok := c.Locals(LocalSession).(models.Session); ok {
		return s
	}
	return models.Anonymous()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
