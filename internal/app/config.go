package app

import (
	"os"
	"strings"
	"time"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/envutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type Config struct {
	Environment        string
	HTTPAddr           string
	ResolverConfigPath string
	InflightWait       time.Duration

	// Optional integrations; wiring is skipped when the env is absent.
	BlobStoreEnabled bool
	EventBusEnabled  bool
	VisionEnabled    bool
	UseStubExtractor bool
}

func LoadConfig(log *logger.Logger) Config {
	env := envutil.GetEnv("APP_ENV", "development", log)
	port := envutil.GetEnv("PORT", "8080", log)
	inflightSeconds := envutil.GetEnvAsInt("PIPELINE_INFLIGHT_WAIT_SECONDS", 30, log)

	return Config{
		Environment:        env,
		HTTPAddr:           ":" + port,
		ResolverConfigPath: envutil.GetEnv("RESOLVER_CONFIG_PATH", "", log),
		InflightWait:       time.Duration(inflightSeconds) * time.Second,
		BlobStoreEnabled:   strings.TrimSpace(os.Getenv("DOCUMENT_GCS_BUCKET_NAME")) != "",
		EventBusEnabled:    strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "",
		VisionEnabled:      strings.TrimSpace(os.Getenv("VISION_OCR_ENABLED")) != "",
		UseStubExtractor:   strings.TrimSpace(os.Getenv("EXTRACTION_PROVIDER")) == "stub",
	}
}
