package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/platformkit/auth-service/config"
	"github.com/platformkit/auth-service/pkg/helpers"
)

// Seeds a confirmed admin account for local development.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "admin@example.com"
	password := "Admin123!"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, first_name, last_name, email_confirmed, phone_confirmed)
		VALUES ($1, $2, 'Admin', 'User', true, true)
		ON CONFLICT (lower(email)) DO UPDATE SET updated_at = now()
		RETURNING id
	`, email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", id, email, password)

	// Ensure base roles exist
	var adminRoleID string
	if err := db.QueryRow(`
		INSERT INTO roles (name) VALUES ('admin')
		ON CONFLICT (name) DO UPDATE SET updated_at = now()
		RETURNING id
	`).Scan(&adminRoleID); err != nil {
		log.Fatalf("failed to upsert admin role: %v", err)
	}

	// Assign admin role to seeded user
	if _, err := db.Exec(`
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, id, adminRoleID); err != nil {
		log.Fatalf("failed to assign admin role: %v", err)
	}
	fmt.Println("assigned admin role to seeded user (if not already)")
}
