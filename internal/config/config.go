package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigins        []string
	FrontendURL           string
	OAuthConfig           OAuthConfig
	DatabaseURL           string
	DBMaxOpenConns        int
	DBMaxIdleConns        int
	DBConnMaxLifetimeMin  int
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int
	LLMBaseURL            string
	LLMAPIKey             string
	LLMModel              string
	PlanCatalogPath       string
	ChatSendsPerMinute    int
}

var AppConfig *Config

func LoadConfig() *Config {
	port := GetEnv("PORT", "8080")

	// Frontend & CORS
	frontendURL := GetEnv("FRONTEND_URL", "https://app.sparkpad.io")
	allowedOriginsStr := GetEnv("ALLOWED_ORIGINS", "")

	// Build allowed origins list (Frontend URL + Localhost + CSV values)
	allowedOrigins := []string{
		frontendURL,
		"http://localhost:5173", // Local development
	}
	if allowedOriginsStr != "" {
		extras := strings.Split(allowedOriginsStr, ",")
		for _, origin := range extras {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	// Database Config
	// Append simple_protocol for PgBouncer compatibility (pgx driver)
	dbURL := GetEnv("DATABASE_URL", GetEnv("DATABASE_URI", ""))
	if dbURL != "" {
		if u, err := url.Parse(dbURL); err == nil {
			q := u.Query()
			if q.Get("default_query_exec_mode") == "" {
				q.Set("default_query_exec_mode", "simple_protocol")
				u.RawQuery = q.Encode()
				dbURL = u.String()
			}
		}
	}
	dbMaxOpenConns := GetEnvAsInt("DB_MAX_OPEN_CONNS", 25)
	dbMaxIdleConns := GetEnvAsInt("DB_MAX_IDLE_CONNS", 25)
	dbConnMaxLifetimeMin := GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	// Security
	jwtSecret := GetEnv("JWT_SECRET", "your-secret-key-change-this-in-production")
	accessTTL := GetEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 15)
	refreshTTL := GetEnvAsInt("REFRESH_TOKEN_TTL_DAYS", 30)

	// LLM provider
	llmBaseURL := GetEnv("LLM_BASE_URL", "https://api.openai.com/v1")
	llmAPIKey := GetEnv("LLM_API_KEY", "")
	llmModel := GetEnv("LLM_MODEL", "gpt-4o-mini")

	oauthConfig := LoadOAuthConfig()

	AppConfig = &Config{
		Port:                  port,
		AllowedOrigins:        allowedOrigins,
		FrontendURL:           frontendURL,
		OAuthConfig:           *oauthConfig,
		DatabaseURL:           dbURL,
		DBMaxOpenConns:        dbMaxOpenConns,
		DBMaxIdleConns:        dbMaxIdleConns,
		DBConnMaxLifetimeMin:  dbConnMaxLifetimeMin,
		JWTSecret:             jwtSecret,
		AccessTokenTTLMinutes: accessTTL,
		RefreshTokenTTLDays:   refreshTTL,
		LLMBaseURL:            llmBaseURL,
		LLMAPIKey:             llmAPIKey,
		LLMModel:              llmModel,
		PlanCatalogPath:       GetEnv("PLAN_CATALOG_PATH", ""),
		ChatSendsPerMinute:    GetEnvAsInt("CHAT_SENDS_PER_MINUTE", 20),
	}

	return AppConfig
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
