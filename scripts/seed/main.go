// Command seed creates an initial account so a fresh deployment can log in.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/internal/repository"
	"github.com/uniwatch/uniwatch-api/pkg/config"
	"github.com/uniwatch/uniwatch-api/pkg/database"
)

func main() {
	var (
		email     string
		password  string
		firstName string
		lastName  string
		role      string
	)
	flag.StringVar(&email, "email", "", "Account email (required)")
	flag.StringVar(&password, "password", "", "Account password (required)")
	flag.StringVar(&firstName, "first-name", "Admin", "First name")
	flag.StringVar(&lastName, "last-name", "User", "Last name")
	flag.StringVar(&role, "role", string(models.RoleAdmin), "Role: ADMIN, TEACHER or STUDENT")
	flag.Parse()

	if email == "" || password == "" {
		log.Fatal("both -email and -password are required")
	}
	if !models.Role(role).Valid() {
		log.Fatalf("invalid role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := repository.NewUserRepository(db)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		log.Fatalf("account %s already exists", email)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.Role(role),
		FirstName:    firstName,
		LastName:     lastName,
		Active:       true,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("failed to create account: %v", err)
	}
	log.Printf("created %s account %s (%s)", role, email, user.ID)
}
