// Package config provides centralized default values for the session user data service
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Document Store
	MongoURI         string
	MongoDatabase    string
	DBConnectTimeout time.Duration
	DBQueryTimeout   time.Duration

	// Upstream Services
	ContentAPIBaseURL     string
	ContentAPIKey         string
	SessionAPIBaseURL     string
	SessionAPIKey         string
	UserProfileAPIBaseURL string
	IdentityAPIBaseURL    string
	SiteMappingBaseURL    string
	LivefyreBaseURL       string
	UpstreamTimeout       time.Duration

	// Livefyre Network
	LivefyreNetwork       string
	LivefyreNetworkKey    string
	LivefyreSiteKey       string
	LivefyreDefaultSiteID string

	// Cache TTL Configuration
	ArticleCacheTTL           time.Duration
	AuthTokenTTL              time.Duration
	SessionValidityInterval   time.Duration
	SessionValidityRemembered time.Duration
	SessionCacheFloor         time.Duration

	// Security
	CryptoKey string

	// CORS
	AllowedOrigins []string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Document Store
	MongoURI = getEnvString("MONGOLAB_URI", "mongodb://localhost:27017/sessionUserData")
	MongoDatabase = getEnvString("MONGO_DATABASE", "sessionUserData")
	DBConnectTimeout = getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second)
	DBQueryTimeout = getEnvDuration("DB_QUERY_TIMEOUT", 10*time.Second)

	// Upstream Services
	ContentAPIBaseURL = getEnvString("CAPI_URL", "https://api.ft.com/content")
	ContentAPIKey = getEnvString("CAPI_KEY", "")
	SessionAPIBaseURL = getEnvString("SESSION_API_URL", "https://session-api.ft.com")
	SessionAPIKey = getEnvString("SESSION_API_KEY", "")
	UserProfileAPIBaseURL = getEnvString("USER_PROFILE_API_URL", "https://user-profile-api.ft.com")
	IdentityAPIBaseURL = getEnvString("ERIGHTS_TO_UUID_SERVICE_URL", "https://user-id-mapping.ft.com")
	SiteMappingBaseURL = getEnvString("LEGACY_SITE_MAPPING_URL", "https://doc-store-api.ft.com")
	LivefyreBaseURL = getEnvString("LIVEFYRE_URL", "https://bootstrap.livefyre.com")
	UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second)

	// Livefyre Network
	LivefyreNetwork = getEnvString("LIVEFYRE_NETWORK_NAME", "ft-1")
	LivefyreNetworkKey = getEnvString("LIVEFYRE_NETWORK_KEY", "")
	LivefyreSiteKey = getEnvString("LIVEFYRE_SITE_KEY", "")
	LivefyreDefaultSiteID = getEnvString("LIVEFYRE_DEFAULT_SITE_ID", "")

	// Cache TTL Configuration
	ArticleCacheTTL = time.Duration(getEnvInt("ARTICLE_CACHE_TTL_HOURS", 12)) * time.Hour
	AuthTokenTTL = time.Duration(getEnvInt("AUTH_TOKEN_TTL_HOURS", 24)) * time.Hour
	SessionValidityInterval = time.Duration(getEnvInt("SESSION_VALIDITY_HOURS", 24)) * time.Hour
	SessionValidityRemembered = time.Duration(getEnvInt("SESSION_VALIDITY_REMEMBERED_HOURS", 4320)) * time.Hour
	SessionCacheFloor = getEnvDuration("SESSION_CACHE_FLOOR", 4*time.Hour)

	// Security
	CryptoKey = getEnvString("CRYPTO_KEY", "")

	// CORS
	originsRaw := getEnvString("ALLOWED_ORIGINS", "https://www.ft.com,http://localhost:3000")
	AllowedOrigins = nil
	for _, origin := range strings.Split(originsRaw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			AllowedOrigins = append(AllowedOrigins, trimmed)
		}
	}
}
