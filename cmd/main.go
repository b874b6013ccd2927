package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"wecom-relay/internal/config"
	"wecom-relay/internal/infrastructure"
	"wecom-relay/internal/interfaces/http"
	"wecom-relay/internal/repository"
	"wecom-relay/internal/usecases"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		panic("Invalid configuration: " + err.Error())
	}

	// Connect to PostgreSQL
	pgClient, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}
	defer pgClient.Close()

	// Initialize Repositories
	membershipRepo := repository.NewMembershipRepository(pgClient.Pool)
	quotaRepo := repository.NewQuotaRepository(pgClient.Pool)
	historyRepo := repository.NewHistoryRepository(pgClient.Pool)
	tokenRepo := repository.NewTokenRepository(pgClient.Pool)
	userRepo := repository.NewUserRepository(pgClient.Pool)

	// Upstream clients
	completionClient := infrastructure.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	pushClient := infrastructure.NewWeComClient(cfg.WechatCorpID, cfg.WechatCorpSecret, cfg.WechatAgentID, tokenRepo)

	// Initialize Usecases
	ledger := usecases.NewQuotaLedger(membershipRepo, quotaRepo)
	relayService := usecases.NewRelayService(ledger, historyRepo, completionClient, pushClient,
		cfg.WechatToken, cfg.WechatEncodingAESKey)
	membershipUsecase := usecases.NewMembershipUsecase(membershipRepo)
	authUsecase := usecases.NewAuthUsecase(userRepo, cfg.JWTSecret)

	// Ensure Admin User
	if err := authUsecase.EnsureAdmin("root", "root"); err != nil {
		fmt.Println("Warning: Failed to ensure admin user:", err)
	}

	// Setup HTTP server
	r := gin.Default()
	authMiddleware := http.NewMiddleware(cfg.JWTSecret)
	http.SetupRoutes(r, relayService, membershipUsecase, authUsecase, authMiddleware)

	addr := "0.0.0.0:" + cfg.Port
	log.Printf("Server start on http://%s", addr)
	if err := r.Run(addr); err != nil {
		fmt.Printf("FAILED to start HTTP Server: %v\n", err)
		os.Exit(1)
	}
}
