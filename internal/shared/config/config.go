package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	UploadPrefix    string
	TailoredPrefix  string

	AWSRegion   string
	S3Bucket    string
	S3Prefix    string
	SSEKMSKeyID string

	DatabaseURL string

	LLMProvider   string
	LLMModel      string
	OllamaBaseURL string

	TaskTimeout time.Duration

	RemoteOKURL string
	WWRBoardURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		UploadPrefix:    getEnv("UPLOAD_PREFIX", "uploads"),
		TailoredPrefix:  getEnv("TAILORED_PREFIX", "tailored_resumes"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LLMProvider:     getEnv("LLM_PROVIDER", "ollama"),
		LLMModel:        getEnv("LLM_MODEL", "llama3.2:latest"),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		TaskTimeout:     getDurationSeconds("TASK_TIMEOUT_SECONDS", 300),
		RemoteOKURL:     getEnv("SEARCH_REMOTEOK_URL", "https://remoteok.com/api"),
		WWRBoardURL:     getEnv("SEARCH_WWR_URL", "https://weworkremotely.com/remote-jobs/search"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDurationSeconds(key string, defSeconds int) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return time.Duration(defSeconds) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
