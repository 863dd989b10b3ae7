package app

import (
	"github.com/fanlume/fanlume-backend/internal/platform/envutil"
)

type Config struct {
	Addr         string
	Environment  string
	Version      string
	ServiceName  string
	TaxonomyPath string
	// EmitterMode selects the SSE delivery fabric: "hub" broadcasts
	// in-process, "redis" publishes through the shared bus.
	EmitterMode string
	LLMEnabled  bool
}

func LoadConfig() Config {
	return Config{
		Addr:         envutil.String("HTTP_ADDR", ":8080"),
		Environment:  envutil.String("APP_ENV", "development"),
		Version:      envutil.String("APP_VERSION", "dev"),
		ServiceName:  envutil.String("SERVICE_NAME", "fanlume-engine"),
		TaxonomyPath: envutil.String("TAXONOMY_PATH", ""),
		EmitterMode:  envutil.String("SSE_EMITTER", "hub"),
		LLMEnabled:   envutil.Bool("LLM_ENABLED", true),
	}
}
