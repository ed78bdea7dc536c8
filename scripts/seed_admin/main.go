package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		dsn      string
		username string
		email    string
		password string
		role     string
		timeout  time.Duration
	)

	flag.StringVar(&dsn, "dsn", os.Getenv("METADATA_DB_DSN"), "Metadata store DSN")
	flag.StringVar(&username, "username", "admin", "Login name")
	flag.StringVar(&email, "email", "admin@example.com", "Email address")
	flag.StringVar(&password, "password", "", "Initial password (required)")
	flag.StringVar(&role, "role", "ADMIN", "Role: ADMIN or OPERATOR")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Database timeout")
	flag.Parse()

	if dsn == "" {
		log.Fatal("missing -dsn (or METADATA_DB_DSN)")
	}
	if password == "" {
		log.Fatal("missing -password")
	}
	if role != "ADMIN" && role != "OPERATOR" {
		log.Fatalf("invalid role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	id := uuid.NewString()
	const query = `INSERT INTO users (id, username, email, password_hash, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		ON CONFLICT (username) DO UPDATE
		SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash, role = EXCLUDED.role,
			active = TRUE, updated_at = EXCLUDED.updated_at`
	if _, err := db.ExecContext(ctx, query, id, username, email, string(hash), role, now); err != nil {
		log.Fatalf("failed to upsert user: %v", err)
	}

	fmt.Printf("user %q (%s) is ready\n", username, role)
}
