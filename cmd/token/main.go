package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/edrive/ride-hailing/internal/auth"
	"github.com/edrive/ride-hailing/internal/config"
)

// token issues a signed access token for local testing:
//
//	go run ./cmd/token -user p1 -role passenger -name "Ali"
func main() {
	userID := flag.String("user", "", "user id")
	role := flag.String("role", string(auth.RolePassenger), "passenger, driver or admin")
	name := flag.String("name", "", "display name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	tok, err := tokens.Issue(*userID, *name, auth.Role(*role))
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(tok)
}
