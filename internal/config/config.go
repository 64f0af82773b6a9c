// Package config reads library configuration from environment variables.
package config

import "os"

// Config holds environment-driven defaults for the encoding utilities.
type Config struct {
	// CacheDir is where pretrained model files are cached.
	CacheDir string
	// HubEndpoint is the base URL model files are downloaded from.
	HubEndpoint string
	// ORTLibraryPath points at the ONNX Runtime shared library. When empty,
	// the library is looked up next to the model file.
	ORTLibraryPath string
	// LogLevel is the slog level name: "debug", "info", "warn", "error".
	LogLevel string
}

// Load reads configuration from NLP_RECIPES_* environment variables with
// sensible defaults.
func Load() Config {
	return Config{
		CacheDir:       getenv("NLP_RECIPES_CACHE_DIR", "."),
		HubEndpoint:    getenv("NLP_RECIPES_HUB_ENDPOINT", "https://huggingface.co"),
		ORTLibraryPath: os.Getenv("NLP_RECIPES_ORT_LIB"),
		LogLevel:       getenv("NLP_RECIPES_LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
