package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/verifatura/saft-validator-service/api"
	"github.com/verifatura/saft-validator-service/internal/auth"
	"github.com/verifatura/saft-validator-service/internal/models"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	config, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize JWT
	if err := auth.Init(&config.Auth); err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	if auth.Enabled() {
		log.Println("JWT authentication initialized")
	} else {
		log.Println("Authentication disabled, all endpoints are open")
	}

	// Create API handler
	handler := api.NewHandler(config)
	router := handler.SetupRoutes()

	// Add login endpoint
	router.HandleFunc("/api/login", auth.LoginHandler).Methods("POST")

	// Wrap router with JWT middleware (skips /health and /api/login)
	protectedRouter := auth.JWTMiddleware(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Printf("Starting SAF-T Validator Service v%s on %s", api.Version, addr)
	log.Printf("OCR language: %s", config.OCR.Language)
	log.Printf("Endpoints:")
	log.Printf("  POST http://%s/api/validate-saft      - Validate SAF-T PT XML (?extended=true for purchases)", addr)
	log.Printf("  POST http://%s/api/validate-purchase  - Analyse purchase PDF/image via OCR", addr)
	log.Printf("  POST http://%s/api/login              - Authenticate", addr)
	log.Printf("  GET  http://%s/health                 - Health check", addr)

	if err := http.ListenAndServe(addr, protectedRouter); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func loadConfig(path string) (*models.Config, error) {
	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if lang := os.Getenv("OCR_LANGUAGE"); lang != "" {
		config.OCR.Language = lang
	}
	if prefix := os.Getenv("TESSDATA_PREFIX"); prefix != "" {
		config.OCR.TessdataPrefix = prefix
	}

	if config.Port == 0 {
		config.Port = 8080
	}
	if config.OCR.Language == "" {
		config.OCR.Language = "por"
	}

	return &config, nil
}
