package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "memory" or "sqlite"
	DataDir        string // base directory for the sqlite database
	UseMockLLM     bool   // true = use mock even in gcp mode

	// Subscribed marks the local user as privileged (quota-exempt). In a
	// deployed build this comes from the entitlement service instead.
	Subscribed bool

	// ReflectionsDailyLimit is the per-day send quota on the reflections
	// surface for non-subscribed users. The chat surface has no quota.
	ReflectionsDailyLimit int

	// RetrievalDelay is the cosmetic pause between the retrieval
	// confirmation and the digest fetch. Zero disables it.
	RetrievalDelay time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load reads all env vars and builds the config.
func Load() *Config {
	modeStr := getEnv("DRIFTNOTE_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("DRIFTNOTE_PORT", "8080"),

		GCPProjectID: getEnv("DRIFTNOTE_GCP_PROJECT", ""),
		GCPLocation:  getEnv("DRIFTNOTE_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("DRIFTNOTE_MODEL_NAME", "gemini-2.5-flash-lite"),

		StorageBackend: getEnv("DRIFTNOTE_STORAGE_BACKEND", "sqlite"),
		DataDir:        getEnv("DRIFTNOTE_DATA_DIR", defaultDataDir()),
		UseMockLLM:     getBoolEnv("DRIFTNOTE_USE_MOCK_LLM", mode == ModeLocal),

		Subscribed: getBoolEnv("DRIFTNOTE_SUBSCRIBED", false),

		ReflectionsDailyLimit: getIntEnv("DRIFTNOTE_REFLECTIONS_DAILY_LIMIT", 3),

		RetrievalDelay: time.Duration(getIntEnv("DRIFTNOTE_RETRIEVAL_DELAY_MS", 600)) * time.Millisecond,
	}

	// Minimal validation in GCP mode
	if cfg.Mode == ModeGCP && cfg.GCPProjectID == "" {
		log.Fatal("DRIFTNOTE_GCP_PROJECT must be set in gcp mode")
	}

	return cfg
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".driftnote"
	}
	return home + "/.driftnote"
}
