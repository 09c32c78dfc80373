// seed loads development data into the configured access store: the public impact pools and a dev login.
// Idempotent: existing pools and an existing dev user are left untouched.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/config"
	"poolfi/backend/internal/db"
	identityrepo "poolfi/backend/internal/identity/repository"
	identityservice "poolfi/backend/internal/identity/service"
	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/pool/domain"
	poolrepo "poolfi/backend/internal/pool/repository"
	"poolfi/backend/internal/security"
)

const (
	devFirstName = "Dev"
	devLastName  = "User"
	devPseudonym = "devuser"
	devUserEmail = "dev@example.com"
	devPassword  = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.Env, cfg.LogLevel).WithField("component", "seed")
	ctx := context.Background()

	var (
		users identityrepo.Repository
		pools poolrepo.Repository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		users = identityrepo.NewPostgresRepository(conn)
		pools = poolrepo.NewPostgresRepository(conn)
	default:
		users = identityrepo.NewFileRepository(cfg.DocumentPath(identityrepo.DocumentName), nil, log)
		pools = poolrepo.NewFileRepository(cfg.DocumentPath(poolrepo.DocumentName), nil, log)
	}

	created := 0
	for _, p := range poolrepo.SeedImpactPools() {
		err := pools.CreatePool(ctx, p, poolrepo.PlaceLast)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
		case err != nil:
			log.Fatalf("seed pool %s: %v", p.ID, err)
		default:
			created++
		}
	}
	log.WithField("created", created).Info("impact pools seeded")

	tokens, err := security.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL())
	if err != nil {
		log.Fatalf("session tokens: %v", err)
	}
	auth := identityservice.NewAuthService(users, security.NewHasher(cfg.BcryptCost), tokens, identityservice.Options{Logger: log})
	_, err = auth.Signup(ctx, identityservice.SignupInput{
		FirstName: devFirstName,
		LastName:  devLastName,
		Pseudonym: devPseudonym,
		Email:     devUserEmail,
		Password:  devPassword,
	})
	switch {
	case errors.Is(err, identityservice.ErrEmailAlreadyRegistered):
		log.Info("dev user already exists; skipping")
	case err != nil:
		log.Fatalf("create dev user: %v", err)
	}

	log.Info("seed completed successfully")
	fmt.Printf("Dev login: %s / %s\n", devUserEmail, devPassword)
}
