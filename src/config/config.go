package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Drop policies for rows that fail normalization.
const (
	DropPolicyLenient = "lenient"
	DropPolicyStrict  = "strict"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port     string
	LogLevel string

	// Source discovery
	DataDir         string
	SourceRecursive bool
	CSVFallbackName string
	SourceKeywords  []string
	MaxSourceBytes  int64

	// Workbook layout
	SheetWithPartners    string
	SheetNoPartners      string
	SheetPayables        string
	ScenarioWithPartners string
	ScenarioNoPartners   string
	HeaderRows           int
	SentinelRow          int
	DropPolicy           string

	// Dashboard
	ReferenceDate string // YYYY-MM-DD used by the summary when the request gives none

	// Cache & HTTP
	CacheCleanupInterval time.Duration
	RateLimitRPS         int
	RateLimitBurst       int
	AllowedOrigins       []string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// Defaults returns the configuration used when no environment variable is set.
func Defaults() *AppConfig {
	return &AppConfig{
		Port:     "8080",
		LogLevel: "info",

		DataDir:         ".",
		SourceRecursive: false,
		CSVFallbackName: "cashflow.csv",
		SourceKeywords:  []string{"потребность", "upm", "юпм"},
		MaxSourceBytes:  20 * 1024 * 1024,

		SheetWithPartners:    "Версия с фин займ партнеров",
		SheetNoPartners:      "Версия без фин займ партнеров",
		SheetPayables:        "Сводная",
		ScenarioWithPartners: "With Partners",
		ScenarioNoPartners:   "No Partners",
		HeaderRows:           2,
		SentinelRow:          0,
		DropPolicy:           DropPolicyLenient,

		ReferenceDate: "2026-01-31",

		CacheCleanupInterval: 30 * time.Minute,
		RateLimitRPS:         10,
		RateLimitBurst:       30,
		AllowedOrigins:       []string{"http://localhost:3000", "http://localhost:8501"},
	}
}

// LoadConfig loads configuration from environment variables or a .env file.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")
	Cfg = FromEnv()

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DataDir=%s, DropPolicy=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DataDir, Cfg.DropPolicy)
}

// FromEnv builds an AppConfig from the current environment on top of Defaults.
func FromEnv() *AppConfig {
	d := Defaults()

	dropPolicy := strings.ToLower(getEnv("DROP_POLICY", d.DropPolicy))
	if dropPolicy != DropPolicyLenient && dropPolicy != DropPolicyStrict {
		log.Printf("WARNING: Invalid DROP_POLICY '%s'. Using %s.", dropPolicy, d.DropPolicy)
		dropPolicy = d.DropPolicy
	}

	return &AppConfig{
		Port:     getEnv("PORT", d.Port),
		LogLevel: getEnv("LOG_LEVEL", d.LogLevel),

		DataDir:         getEnv("DATA_DIR", d.DataDir),
		SourceRecursive: getEnvAsBool("SOURCE_RECURSIVE", d.SourceRecursive),
		CSVFallbackName: getEnv("SOURCE_CSV_NAME", d.CSVFallbackName),
		SourceKeywords:  getEnvAsList("SOURCE_KEYWORDS", d.SourceKeywords),
		MaxSourceBytes:  getEnvAsInt64("MAX_SOURCE_SIZE_BYTES", d.MaxSourceBytes),

		SheetWithPartners:    getEnv("SHEET_WITH_PARTNERS", d.SheetWithPartners),
		SheetNoPartners:      getEnv("SHEET_NO_PARTNERS", d.SheetNoPartners),
		SheetPayables:        getEnv("SHEET_PAYABLES", d.SheetPayables),
		ScenarioWithPartners: getEnv("SCENARIO_WITH_PARTNERS", d.ScenarioWithPartners),
		ScenarioNoPartners:   getEnv("SCENARIO_NO_PARTNERS", d.ScenarioNoPartners),
		HeaderRows:           getEnvAsInt("HEADER_ROWS", d.HeaderRows),
		SentinelRow:          getEnvAsInt("SENTINEL_ROW", d.SentinelRow),
		DropPolicy:           dropPolicy,

		ReferenceDate: getEnv("REFERENCE_DATE", d.ReferenceDate),

		CacheCleanupInterval: getEnvAsDuration("CACHE_CLEANUP_INTERVAL", d.CacheCleanupInterval),
		RateLimitRPS:         getEnvAsInt("RATE_LIMIT_RPS", d.RateLimitRPS),
		RateLimitBurst:       getEnvAsInt("RATE_LIMIT_BURST", d.RateLimitBurst),
		AllowedOrigins:       getEnvAsList("ALLOWED_ORIGINS", d.AllowedOrigins),
	}
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
