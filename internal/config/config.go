package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"distance-request-service/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the runtime settings of the service, read from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	DBPath      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BackupTTL     time.Duration

	ORSAPIKey      string
	GeocodeCountry string
	MapTokenURL    string

	LogFormat string
	LogLevel  string
	Locale    string

	Mileage domain.MileageRate
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// LoadDotEnv loads a .env file if one exists; its absence is not an error.
func LoadDotEnv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

func Load() (Config, error) {
	redisDB, err := strconv.Atoi(Get("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("load config: REDIS_DB: %w", err)
	}

	backupTTL, err := time.ParseDuration(Get("BACKUP_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("load config: BACKUP_TTL: %w", err)
	}

	rate, err := decimal.NewFromString(Get("MILEAGE_RATE", "0.67"))
	if err != nil {
		return Config{}, fmt.Errorf("load config: MILEAGE_RATE: %w", err)
	}
	if rate.IsNegative() {
		return Config{}, fmt.Errorf("load config: MILEAGE_RATE must not be negative, got %s", rate)
	}

	unit := domain.DistanceUnit(Get("MILEAGE_UNIT", string(domain.UnitMiles)))
	if unit != domain.UnitMiles && unit != domain.UnitKilometers {
		return Config{}, fmt.Errorf("load config: MILEAGE_UNIT must be %q or %q, got %q", domain.UnitMiles, domain.UnitKilometers, unit)
	}

	return Config{
		Port:           Get("PORT", "8080"),
		DatabaseURL:    Get("DATABASE_URL", ""),
		DBPath:         Get("DB_PATH", "data/app.db"),
		RedisAddr:      Get("REDIS_ADDR", ""),
		RedisPassword:  Get("REDIS_PASSWORD", ""),
		RedisDB:        redisDB,
		BackupTTL:      backupTTL,
		ORSAPIKey:      Get("ORS_API_KEY", ""),
		GeocodeCountry: Get("GEOCODE_COUNTRY", ""),
		MapTokenURL:    Get("MAP_TOKEN_URL", ""),
		LogFormat:      Get("LOG_FORMAT", "json"),
		LogLevel:       Get("LOG_LEVEL", "info"),
		Locale:         Get("LOCALE", "en"),
		Mileage: domain.MileageRate{
			Rate:     rate,
			Unit:     unit,
			Currency: Get("CURRENCY", "USD"),
		},
	}, nil
}
