package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/utils"
)

// DefaultBaseURLTemplate is the reklama5 car category search.
const DefaultBaseURLTemplate = "https://www.reklama5.mk/Search?city=&cat=24&q={search_term}&page={page_num}"

const (
	StorePostgres = "postgres"
	StoreFile     = "file"

	FetchHTTP    = "http"
	FetchBrowser = "browser"

	MaxDetailWorkers = 5
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SearchTerm      string
	Days            int
	Limit           int
	BaseURLTemplate string
	MaxPages        int
	PageDelay       string

	EnableDetails   bool
	DetailWorkers   int
	DetailRateLimit int
	DetailDelay     string
	DetailMaxItems  int

	SkipUnchanged      bool
	DateDriftTolerance time.Duration
	MinPrice           int

	Store            string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	CSVOutputPath       string
	ExportCSV           bool
	AggregateOutputPath string

	FetchMode      string
	ChromeBin      string
	MaxRetries     int
	RequestTimeout time.Duration

	RedisAddr      string
	RedisDB        int
	RedisStream    string
	MemcacheAddr   string
	DetailCacheTTL time.Duration

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		SearchTerm:      getEnv("SEARCH_TERM", ""),
		Days:            getEnvInt("DAYS", 1),
		Limit:           getEnvInt("LIMIT", 0),
		BaseURLTemplate: getEnv("BASE_URL_TEMPLATE", DefaultBaseURLTemplate),
		MaxPages:        getEnvInt("MAX_PAGES", 199),
		PageDelay:       getEnv("PAGE_DELAY", "2-4"),

		EnableDetails:   getEnvBool("ENABLE_DETAILS", false),
		DetailWorkers:   getEnvInt("DETAIL_WORKERS", 3),
		DetailRateLimit: getEnvInt("DETAIL_RATE_LIMIT", 0),
		DetailDelay:     getEnv("DETAIL_DELAY", "random"),
		DetailMaxItems:  getEnvInt("DETAIL_MAX_ITEMS", 0),

		SkipUnchanged:      getEnvBool("SKIP_UNCHANGED", false),
		DateDriftTolerance: getEnvDuration("DATE_DRIFT_TOLERANCE", 0),
		MinPrice:           getEnvInt("MIN_PRICE", 500),

		Store:            getEnv("STORE", StorePostgres),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "reklama5"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		CSVOutputPath:       getEnv("CSV_OUTPUT_PATH", "./output/reklama5_autos_raw.csv"),
		ExportCSV:           getEnvBool("EXPORT_CSV", false),
		AggregateOutputPath: getEnv("AGGREGATE_OUTPUT_PATH", "./output/reklama5_autos_agg.json"),

		FetchMode:      getEnv("FETCH_MODE", FetchHTTP),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 20*time.Second),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisStream:    getEnv("REDIS_STREAM", "reklama5:changes"),
		MemcacheAddr:   getEnv("MEMCACHE_ADDR", ""),
		DetailCacheTTL: getEnvDuration("DETAIL_CACHE_TTL", 6*time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate rejects configurations the pipeline cannot run with. It is called
// before any network activity.
func (c *Config) Validate() error {
	if c.Days <= 0 {
		return apperrors.NewConfig(fmt.Sprintf("days must be positive, got %d", c.Days))
	}
	if c.Limit < 0 {
		return apperrors.NewConfig(fmt.Sprintf("limit must not be negative, got %d", c.Limit))
	}
	if c.MaxPages <= 0 {
		return apperrors.NewConfig(fmt.Sprintf("max pages must be positive, got %d", c.MaxPages))
	}
	if c.MinPrice < 0 {
		return apperrors.NewConfig(fmt.Sprintf("min price must not be negative, got %d", c.MinPrice))
	}
	if c.DetailWorkers < 1 || c.DetailWorkers > MaxDetailWorkers {
		return apperrors.NewConfig(fmt.Sprintf("detail workers must be between 1 and %d, got %d",
			MaxDetailWorkers, c.DetailWorkers))
	}
	if c.DetailRateLimit < 0 || c.DetailRateLimit > c.DetailWorkers {
		return apperrors.NewConfig(fmt.Sprintf("detail rate limit %d must be between 0 and workers (%d)",
			c.DetailRateLimit, c.DetailWorkers))
	}
	if !strings.Contains(c.BaseURLTemplate, "{search_term}") || !strings.Contains(c.BaseURLTemplate, "{page_num}") {
		return apperrors.NewConfig("base url template needs {search_term} and {page_num} placeholders")
	}
	if _, err := c.DetailDelayPolicy(); err != nil {
		return err
	}
	if _, err := c.PageDelayPolicy(); err != nil {
		return err
	}
	switch c.Store {
	case StorePostgres, StoreFile:
	default:
		return apperrors.NewConfig(fmt.Sprintf("unknown store %q", c.Store))
	}
	switch c.FetchMode {
	case FetchHTTP, FetchBrowser:
	default:
		return apperrors.NewConfig(fmt.Sprintf("unknown fetch mode %q", c.FetchMode))
	}
	return nil
}

// DetailDelayPolicy parses DetailDelay.
func (c *Config) DetailDelayPolicy() (utils.DelayPolicy, error) {
	return utils.ParseDelayPolicy(c.DetailDelay)
}

// PageDelayPolicy parses PageDelay. Besides the DetailDelay forms it accepts
// a "min-max" range in seconds.
func (c *Config) PageDelayPolicy() (utils.DelayPolicy, error) {
	lo, hi, ok := strings.Cut(c.PageDelay, "-")
	if !ok {
		return utils.ParseDelayPolicy(c.PageDelay)
	}
	min, err1 := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	max, err2 := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err1 != nil || err2 != nil || min < 0 || max < 0 {
		return utils.DelayPolicy{}, apperrors.NewConfig(fmt.Sprintf("invalid page delay range %q", c.PageDelay))
	}
	return utils.RandomDelay(seconds(min), seconds(max)), nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
