// Command devserver runs the in-memory backend stub with a seeded account
// and reference data, for local client development and manual testing.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	secret := flag.String("secret", "dev-secret", "jwt signing secret")
	email := flag.String("email", "dev@example.com", "seeded user email")
	password := flag.String("password", "devpass", "seeded user password")
	healthDelay := flag.Duration("health-delay", 0, "artificial health endpoint delay")
	flag.Parse()

	store := server.NewStore()
	if err := store.AddUser(*email, *password, models.Profile{
		Name:     "Dev User",
		Role:     "technician",
		IsActive: true,
	}); err != nil {
		log.Fatalf("seeding user: %v", err)
	}

	store.SetReference(
		[]models.Project{
			{ID: 1, Name: "Office renovation"},
			{ID: 2, Name: "Warehouse build"},
			{ID: 3, Name: "Internal"},
		},
		[]models.WorkType{
			{ID: 1, Name: "Electrical"},
			{ID: 2, Name: "Plumbing"},
			{ID: 3, Name: "Inspection"},
		},
	)

	router := server.NewRouter(store, server.Config{
		JWTSecret:     []byte(*secret),
		TokenValidity: 24 * time.Hour,
		HealthDelay:   *healthDelay,
	})

	log.Printf("devserver listening on %s (user %s)", *addr, *email)
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.Fatal(err)
	}
}
