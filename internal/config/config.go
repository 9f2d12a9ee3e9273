package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries all process configuration. Values come from the
// environment, optionally seeded from a .env file.
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Marketplace API watcher (token-authenticated).
	MarketplaceAPIURL     string
	MarketplacePublicKey  string
	MarketplacePrivateKey string
	MarketplaceSKUs       []string

	// Page-scraping watcher.
	ProductPageURLs []string

	// Partner feed watcher.
	PartnerFeedURLs []string

	// Release catalog source.
	CatalogURL string

	QueueSize           int
	CatalogSyncMinutes  int
	DigestHourUTC       int
	DigestMinuteUTC     int
	DigestWindowDays    int
	ShutdownGraceSecond int
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "stockwatch:stockwatch@tcp(127.0.0.1:3306)/stockwatch?charset=utf8mb4&parseTime=True&loc=Local"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		MarketplaceAPIURL:     getEnv("MARKETPLACE_API_URL", "https://api.tcgplayer.com"),
		MarketplacePublicKey:  getEnv("MARKETPLACE_PUBLIC_KEY", ""),
		MarketplacePrivateKey: getEnv("MARKETPLACE_PRIVATE_KEY", ""),
		MarketplaceSKUs:       getEnvList("MARKETPLACE_SKUS"),

		ProductPageURLs: getEnvList("PRODUCT_PAGE_URLS"),
		PartnerFeedURLs: getEnvList("PARTNER_FEED_URLS"),

		CatalogURL: getEnv("CATALOG_URL", "https://api.scryfall.com/sets"),

		QueueSize:           getEnvInt("EVENT_QUEUE_SIZE", 256),
		CatalogSyncMinutes:  getEnvInt("CATALOG_SYNC_MINUTES", 720),
		DigestHourUTC:       getEnvInt("DIGEST_HOUR_UTC", 15),
		DigestMinuteUTC:     getEnvInt("DIGEST_MINUTE_UTC", 0),
		DigestWindowDays:    getEnvInt("DIGEST_WINDOW_DAYS", 90),
		ShutdownGraceSecond: getEnvInt("SHUTDOWN_GRACE_SECONDS", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
