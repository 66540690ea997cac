// Command seeduser creates or refreshes a login for the back office.
//
//	go run ./cmd/seeduser -username admin -password secret -name "Store Admin"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"magirls/internal/config"
	"magirls/internal/infra"
	"magirls/internal/model"
	"magirls/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	username := flag.String("username", "admin", "login name")
	password := flag.String("password", "", "plain password (required)")
	fullName := flag.String("name", "Store Admin", "display name")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: seeduser -username NAME -password PASS [-name FULL_NAME]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt")
	}

	u := &model.User{
		Username:     *username,
		FullName:     *fullName,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := repository.NewUserRepository(db).Upsert(context.Background(), u); err != nil {
		log.Fatal().Err(err).Msg("upsert user")
	}
	log.Info().Str("username", *username).Msg("user created or updated")
}
