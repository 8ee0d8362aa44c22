package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"hubbridge/internal/auth/token"
	"hubbridge/internal/db"
	"hubbridge/internal/gateway"
	"hubbridge/internal/httpapi"
	"hubbridge/internal/hubspot"
	"hubbridge/internal/ledger"
	"hubbridge/internal/providers/catalog"
	"hubbridge/internal/upstream"
)

func main() {
	// Optional .env for local development.
	if err := godotenv.Load(); err == nil {
		log.Println("📄 Loaded environment from .env")
	}

	if err := catalog.Init(); err != nil {
		log.Fatalf("Failed to load vendor presets: %v", err)
	}

	dbPath := os.Getenv("HUBBRIDGE_DB")
	if dbPath == "" {
		dbPath = "hubbridge.db"
	}
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	crm := hubspot.NewClient()
	tokenMgr := token.NewManager(database, token.AppConfigFromEnv(), token.WithHubSpotClient(crm))
	if _, err := tokenMgr.StartRefreshSweep(os.Getenv("HUBBRIDGE_REFRESH_SPEC")); err != nil {
		log.Fatalf("Failed to start credential refresh sweep: %v", err)
	}

	adapters := upstream.NewAdapterSet(nil)
	gw := gateway.New(database, adapters, tokenMgr, crm)
	led := ledger.NewService(database)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(httpapi.RequestID)

	// OAuth install flow
	r.Get("/oauth/install", httpapi.InstallHandler(tokenMgr))
	r.Get("/oauth", httpapi.OAuthCallbackHandler(tokenMgr))

	r.Route("/api", func(r chi.Router) {
		// Generation
		r.Post("/chat", httpapi.ChatHandler(gw, led))
		r.Post("/email/generate", httpapi.GenerateEmailHandler(gw, led))
		r.Post("/tones/generate", httpapi.GenerateToneHandler(gw, led))

		// Provider configuration
		r.Get("/providers", httpapi.ListProvidersHandler(database))
		r.Put("/providers/{id}", httpapi.UpdateProviderHandler(database))
		r.Post("/providers/{id}/select", httpapi.SelectProviderHandler(database))

		// Tone presets
		r.Get("/tones", httpapi.ListTonesHandler(database))
		r.Post("/tones", httpapi.CreateToneHandler(database))
		r.Put("/tones/{id}", httpapi.UpdateToneHandler(database))
		r.Delete("/tones/{id}", httpapi.DeleteToneHandler(database))
		r.Post("/tones/{id}/default", httpapi.SetDefaultToneHandler(database))

		// Attempt ledger
		r.Get("/activities", httpapi.ActivitiesHandler(led))
		r.Get("/usage", httpapi.UsageHandler(led))
	})

	host := os.Getenv("HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8386"
	}
	addr := host + ":" + port

	log.Printf("🚀 hubbridge starting on http://%s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
