// Command token mints a session token for local development.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"moments/internal/config"
	"moments/internal/middleware"
)

func main() {
	userID := flag.String("user", "", "User id the token acts as (e.g. user1)")
	ttl := flag.Duration("ttl", 0, "Token lifetime (defaults to SESSION_TTL_MINUTES)")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to mint tokens for a production configuration")
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(cfg.SessionTTLMinutes) * time.Minute
	}

	token, err := middleware.NewSessionAuth(cfg.JWTSecret, lifetime).IssueToken(*userID)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
