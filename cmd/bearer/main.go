// Command bearer mints an HS256 bearer token accepted by the /api routes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ipede/mfa-service/internal/infrastructure/config"
)

func main() {
	subject := flag.String("sub", "", "Subject of the token, usually the calling service")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: bearer -sub <caller> [-ttl 1h]")
		os.Exit(2)
	}

	cfg, err := config.ParseEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal(config.ErrJWTSecretNotSet)
	}

	token, err := mint(cfg.JWTSecret, *subject, *ttl, time.Now())
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

func mint(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
