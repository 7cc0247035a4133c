package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	vision "cloud.google.com/go/vision/v2/apiv1"

	"github.com/SaiNageswarS/consent-core/appconfig"
	"github.com/SaiNageswarS/consent-core/blob"
	"github.com/SaiNageswarS/consent-core/db"
	"github.com/SaiNageswarS/consent-core/ingestor"
	"github.com/SaiNageswarS/consent-core/llm"
	"github.com/SaiNageswarS/consent-core/ocr"
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

	ctx := getCancellableContext()

	blobs, err := blob.NewStore(ctx)
	if err != nil {
		logger.Fatal("Failed to create storage client", zap.Error(err))
	}

	annotator, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		logger.Fatal("Failed to create vision client", zap.Error(err))
	}

	pubsubClient, err := pubsub.NewClient(ctx, ccfg.PubsubProject)
	if err != nil {
		logger.Fatal("Failed to create pubsub client", zap.Error(err))
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
	ocrClient := ocr.NewClient(annotator, blobs, time.Duration(ccfg.OcrTimeoutSeconds)*time.Second)
	pipeline := ingestor.NewPipeline(ocrClient, blobs, store, llmClient)

	subscriber := ingestor.NewSubscriber(pubsubClient, ccfg.PubsubSubscription, pipeline)
	if err := subscriber.Run(ctx); err != nil {
		logger.Fatal("Subscriber stopped", zap.Error(err))
	}
}

func getCancellableContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		cancel()
	}()

	return ctx
}
