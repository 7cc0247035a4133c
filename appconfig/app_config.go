package appconfig

import (
	"github.com/SaiNageswarS/go-api-boot/config"
)

type AppConfig struct {
	config.BootConfig `ini:",extends"`

	MongoURI           string `env:"MONGO-URI" ini:"mongo_uri"`
	Tenant             string `env:"TENANT" ini:"tenant"`
	ConsentBucket      string `env:"CONSENT-BUCKET" ini:"consent_bucket"`
	PubsubProject      string `env:"PUBSUB-PROJECT" ini:"pubsub_project"`
	PubsubSubscription string `env:"PUBSUB-SUBSCRIPTION" ini:"pubsub_subscription"`
	LLMProvider        string `env:"LLM-PROVIDER" ini:"llm_provider"`
	LLMModel           string `env:"LLM-MODEL" ini:"llm_model"`
	HttpPort           string `env:"HTTP-PORT" ini:"http_port"`
	OcrTimeoutSeconds  int    `env:"OCR-TIMEOUT-SECONDS" ini:"ocr_timeout_seconds"`
}
