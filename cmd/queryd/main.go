package main

import (
	"context"

	"github.com/SaiNageswarS/consent-core/appconfig"
	"github.com/SaiNageswarS/consent-core/blob"
	"github.com/SaiNageswarS/consent-core/db"
	"github.com/SaiNageswarS/consent-core/llm"
	"github.com/SaiNageswarS/consent-core/services"
	"github.com/SaiNageswarS/consent-core/session"
	"github.com/SaiNageswarS/go-api-boot/config"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/odm"
	"go.uber.org/zap"
)

func main() {
	dotenv.LoadEnv()

	ccfg := &appconfig.AppConfig{}
	if err := config.LoadConfig("config.ini", ccfg); err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	blobs, err := blob.NewStore(ctx)
	if err != nil {
		logger.Fatal("Failed to create storage client", zap.Error(err))
	}

	mongoClient, err := odm.GetClient()
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	llmClient, err := llm.FromConfig(ccfg.LLMProvider, ccfg.LLMModel)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	if err := db.InitConsentDB(ctx, mongoClient, ccfg.Tenant); err != nil {
		logger.Fatal("Failed to init consent DB", zap.Error(err))
	}

	store := db.NewStore(mongoClient, ccfg.Tenant)
	sessions := session.NewMemoryStore(session.TTL)

	auth := services.ProvideAuthService(store, sessions)
	query := services.ProvideQueryService(store, blobs, ccfg.ConsentBucket, llmClient)
	router := services.NewRouter(auth, query, sessions)

	port := ccfg.HttpPort
	if port == "" {
		port = ":8080"
	}

	logger.Info("Starting consent query service", zap.String("port", port))
	if err := router.Run(port); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
