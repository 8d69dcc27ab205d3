// Package main mints a bearer token for a user ID. It is a development helper
// for calling the API without going through /auth/login.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/narvanalabs/matchday/internal/auth"
	"github.com/narvanalabs/matchday/pkg/config"
)

func main() {
	// Defaults come from the same environment the API reads, falling back to
	// the development secret.
	cfg := config.LoadWithDefaults()

	userID := flag.String("user", "", "User ID for the token (required)")
	email := flag.String("email", "", "Email for the token")
	name := flag.String("name", "", "Display name for the token")
	secret := flag.String("secret", cfg.JWTSecret, "JWT secret (defaults to JWT_SECRET)")
	expiry := flag.Duration("expiry", cfg.JWTExpiry, "Token expiry duration (defaults to JWT_EXPIRY)")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		os.Exit(1)
	}
	if len(*secret) < 32 {
		fmt.Fprintln(os.Stderr, "Error: JWT secret must be at least 32 characters")
		os.Exit(1)
	}

	svc := auth.NewService(&auth.Config{
		JWTSecret:   []byte(*secret),
		TokenExpiry: *expiry,
	}, nil)
	token, err := svc.GenerateToken(*userID, *email, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
