package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// defaultSystemPrompt is the persona sent as the first turn of every
// completion request. Overridable via SYSTEM_PROMPT.
const defaultSystemPrompt = `You are a supportive AI companion designed to provide empathetic responses and emotional support.

Your role:
- Listen actively and respond with empathy and understanding
- Help users explore their feelings in a non-judgmental way
- Provide general emotional support and coping strategies
- Maintain a warm, professional, and supportive tone

IMPORTANT: You are NOT a licensed psychologist. Always remind users to seek professional help for serious concerns.

Respond in the same language as the user. Keep responses concise, supportive, and helpful.`

type Config struct {
	Port        string
	DatabaseURL string

	GroqAPIKey   string
	GroqBaseURL  string
	GroqModel    string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string

	Debug bool
}

// Load reads the environment (and an optional .env file) and builds the
// config. GROQ_API_KEY may be absent here; the chat handler reports its
// absence per request instead of refusing to start.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:  strings.TrimRight(getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"), "/"),
		GroqModel:    getEnv("GROQ_MODEL", "llama3-70b-8192"),
		Temperature:  getFloatEnv("CHAT_TEMPERATURE", 0.7),
		MaxTokens:    getIntEnv("CHAT_MAX_TOKENS", 400),
		SystemPrompt: getEnv("SYSTEM_PROMPT", defaultSystemPrompt),
		Debug:        getBoolEnv("DEBUG", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is not set")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

func getFloatEnv(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}
