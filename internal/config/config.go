package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"dealflow/internal/hubspot"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingToken is returned by RequireToken when no HubSpot access token is configured.
	ErrMissingToken = errors.New("HUBSPOT_ACCESS_TOKEN is not set")
	// ErrInvalidStartDate is returned when START_DATE is not a YYYY-MM-DD date.
	ErrInvalidStartDate = errors.New("START_DATE must be formatted as YYYY-MM-DD")
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	HubSpot hubspot.Config

	StartDate time.Time

	DataPath   string
	OutputDir  string
	ReportsDir string
	LogDir     string

	StageMappingPath string
	ReportLocale     string
	ReportWorkers    int
	ReportSchedule   string

	// FetchWorkers bounds concurrent company lookups while fetching contacts.
	FetchWorkers int
}

// Load loads the configuration from .env files and environment variables. It never touches the network.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := getEnv("DATA_PATH", "")
	if dataPath == "" {
		dataPath = "."
	}

	outputDir := filepath.Join(dataPath, "output")
	reportsDir := filepath.Join(outputDir, "reports")
	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))

	for _, dir := range []string{outputDir, reportsDir, logDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create directory")
		}
	}

	startDate, err := time.Parse("2006-01-02", getEnv("START_DATE", "2025-01-01"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStartDate, err)
	}

	delay, err := strconv.ParseFloat(getEnv("RATE_LIMIT_DELAY", "0.11"), 64)
	if err != nil || delay < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_DELAY must be a non-negative number of seconds")
	}

	cfg := &AppConfig{
		HubSpot: hubspot.Config{
			BaseURL:      getEnv("HUBSPOT_BASE_URL", "https://api.hubapi.com"),
			AccessToken:  getEnv("HUBSPOT_ACCESS_TOKEN", ""),
			StartDate:    startDate,
			RequestDelay: time.Duration(delay * float64(time.Second)),
			MaxRetries:   getEnvInt("MAX_RETRIES", 3),

			ContactSourceProperty: getEnv("CONTACT_SOURCE_PROPERTY", hubspot.DefaultContactSourceProperty),
		},
		StartDate:        startDate,
		DataPath:         dataPath,
		OutputDir:        outputDir,
		ReportsDir:       reportsDir,
		LogDir:           logDir,
		StageMappingPath: resolvePath(getEnv("STAGE_MAPPING_PATH", filepath.Join("config", "stage_mapping.json")), dataPath, exeDir),
		ReportLocale:     getEnv("REPORT_LOCALE", "de"),
		ReportWorkers:    getEnvInt("REPORT_WORKERS", runtime.NumCPU()),
		ReportSchedule:   getEnv("REPORT_SCHEDULE", "0 0 6 1 * *"),
		FetchWorkers:     getEnvInt("FETCH_WORKERS", 4),
	}

	return cfg, nil
}

// RequireToken fails with ErrMissingToken unless an access token is configured.
func (c *AppConfig) RequireToken() error {
	if c.HubSpot.AccessToken == "" {
		return ErrMissingToken
	}
	return nil
}

// resolvePath keeps absolute paths and paths that exist relative to the working directory;
// otherwise it looks next to the data directory, then the binary.
func resolvePath(path, dataPath, exeDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	candidates := []string{filepath.Join(dataPath, path)}
	if exeDir != "" {
		candidates = append(candidates, filepath.Join(exeDir, path))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return path
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Int("fallback", fallback).Msg("Ignoring invalid integer setting")
	}
	return fallback
}
