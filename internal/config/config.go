package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Roles    RolesConfig
	Policy   PolicyConfig
	ZK       ZKConfig
	Audit    AuditConfig
	Log      LogConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessTokenMins  int
	ChallengeMinutes int
}

// RolesConfig holds the bootstrap role assignment
type RolesConfig struct {
	Issuer      common.Address
	BankOfficer common.Address
	Auditor     common.Address
}

// PolicyConfig holds the eligibility thresholds and loan categories
type PolicyConfig struct {
	MinLandAcres      uint64
	MaxAnnualIncome   uint64
	Categories        []string
	MaxCategoryLength int
}

// ZKConfig holds proof verification configuration
type ZKConfig struct {
	VerifyingKeyPath string
}

// AuditConfig holds the ledger audit job configuration
type AuditConfig struct {
	Schedule string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string
	JSONEnabled bool
}

// Global config instance
var AppConfig *Config

// DefaultCategories are the KCC loan categories accepted when LOAN_CATEGORIES is unset
var DefaultCategories = []string{"Agriculture", "Crop Production", "Livestock", "Fisheries", "Farm Equipment"}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	roles, err := loadRolesConfig()
	if err != nil {
		return nil, err
	}
	policy, err := loadPolicyConfig()
	if err != nil {
		return nil, err
	}
	db := loadDatabaseConfig(appMode)
	if db.Driver != "mysql" && db.Driver != "memory" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'memory')", db.Driver)
	}

	// Build config based on APP_MODE
	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: db,
		JWT:      loadJWTConfig(appMode),
		Roles:    roles,
		Policy:   policy,
		ZK: ZKConfig{
			VerifyingKeyPath: getEnv("ZK_VERIFYING_KEY", "keys/eligibility_vk.bin"),
		},
		Audit: AuditConfig{
			Schedule: strings.TrimSpace(os.Getenv("LEDGER_AUDIT_SCHEDULE")),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "INFO"),
			JSONEnabled: getEnvBool("JSON_LOGGING_ENABLED", false),
		},
	}
	if _, set := os.LookupEnv("LEDGER_AUDIT_SCHEDULE"); !set {
		config.Audit.Schedule = "@every 1h"
	}

	if config.IsProd() && config.JWT.Secret == defaultJWTSecret {
		return nil, fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "kcc_loanhub"),
	}
}

const defaultJWTSecret = "default_secret"

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "60"))
	challengeMins, _ := strconv.Atoi(getEnv("AUTH_CHALLENGE_MINUTES", "5"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", defaultJWTSecret),
		AccessTokenMins:  accessMins,
		ChallengeMinutes: challengeMins,
	}
}

// loadRolesConfig loads the bootstrap role assignment
func loadRolesConfig() (RolesConfig, error) {
	issuer, err := domain.ParseAddress(os.Getenv("ISSUER_ADDRESS"))
	if err != nil {
		return RolesConfig{}, fmt.Errorf("ISSUER_ADDRESS: %w", err)
	}

	cfg := RolesConfig{Issuer: issuer}
	optional := []struct {
		key string
		dst *common.Address
	}{
		{"BANK_OFFICER_ADDRESS", &cfg.BankOfficer},
		{"AUDITOR_ADDRESS", &cfg.Auditor},
	}
	for _, o := range optional {
		v := strings.TrimSpace(os.Getenv(o.key))
		if v == "" {
			continue
		}
		addr, err := domain.ParseAddress(v)
		if err != nil {
			return RolesConfig{}, fmt.Errorf("%s: %w", o.key, err)
		}
		*o.dst = addr
	}
	return cfg, nil
}

// loadPolicyConfig loads the eligibility thresholds
func loadPolicyConfig() (PolicyConfig, error) {
	minLand, err := strconv.ParseUint(getEnv("MIN_LAND_ACRES", "3"), 10, 64)
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid MIN_LAND_ACRES: %w", err)
	}
	maxIncome, err := strconv.ParseUint(getEnv("MAX_ANNUAL_INCOME", "300000"), 10, 64)
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid MAX_ANNUAL_INCOME: %w", err)
	}
	maxLen, err := strconv.Atoi(getEnv("MAX_CATEGORY_LENGTH", "64"))
	if err != nil || maxLen < 1 {
		return PolicyConfig{}, fmt.Errorf("invalid MAX_CATEGORY_LENGTH")
	}

	categories := DefaultCategories
	if raw := os.Getenv("LOAN_CATEGORIES"); raw != "" {
		categories = nil
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	}

	return PolicyConfig{
		MinLandAcres:      minLand,
		MaxAnnualIncome:   maxIncome,
		Categories:        categories,
		MaxCategoryLength: maxLen,
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with default value
func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// UsesMemoryStore returns true if the ledger is kept in process memory
func (c *Config) UsesMemoryStore() bool {
	return c.Database.Driver == "memory"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		// Default production origins
		return "https://kcc.loanhub.in"
	}
	return origins
}
