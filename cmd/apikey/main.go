package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/rezkam/atelier/internal/application/auth"
	"github.com/rezkam/atelier/internal/config"
	"github.com/rezkam/atelier/internal/infrastructure/persistence/postgres"
)

// Command-line tool that issues an API key bound to an actor and role.
// Not a production provisioning flow; meant for bootstrapping and development.
func main() {
	name := flag.String("name", "", "Name/description for the API key (required)")
	actorID := flag.String("actor", "", "Actor ID the key authenticates as (required)")
	role := flag.String("role", "", "Actor role: admin, client, designer or vendor (required)")
	days := flag.Int("days", 0, "Number of days until expiration (0 = never expires)")

	flag.Parse()

	if *name == "" || *actorID == "" || *role == "" {
		flag.Usage()
		log.Fatal("-name, -actor and -role are required")
	}
	if *days < 0 {
		log.Fatal("-days must be >= 0")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to read .env: %v", err)
	}

	cfg, err := config.LoadAPIKeyConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	store, err := postgres.Open(ctx, postgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	}()

	var expiresAt *time.Time
	if *days > 0 {
		expiry := time.Now().UTC().AddDate(0, 0, *days)
		expiresAt = &expiry
	}

	apiKey, err := auth.Issue(ctx, store, auth.IssueInput{
		Name:      *name,
		ActorID:   *actorID,
		Role:      *role,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		log.Fatalf("Failed to create API key: %v", err)
	}

	fmt.Println("\n API Key created successfully!")
	fmt.Println("----------------------------------------")
	fmt.Printf("Name:  %s\n", *name)
	fmt.Printf("Actor: %s (%s)\n", *actorID, *role)
	fmt.Printf("Format: %s-%s-%s-{short}-{long}\n", auth.KeyType, auth.KeyService, auth.KeyVersion)
	if expiresAt != nil {
		fmt.Printf("Expires: %s (%d days)\n", expiresAt.Format(time.RFC3339), *days)
	} else {
		fmt.Println("Expires: Never")
	}
	fmt.Println("----------------------------------------")
	fmt.Printf("\nAPI Key: %s\n\n", apiKey)
	fmt.Println("IMPORTANT: Save this key now! It will not be shown again.")
	fmt.Println("----------------------------------------")
	fmt.Println("Usage example:")
	fmt.Printf("  curl -H \"Authorization: Bearer %s\" http://localhost:8080/api/v1/projects/{project_id}\n", apiKey)
}
