// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// Server настройки
	Port string
	Host string
	Env  string

	// Удалённый API алертов
	APIBaseURL string
	APITimeout time.Duration

	// Геокодирование (Nominatim-совместимый поиск)
	NominatimURL     string
	GeocodePerMinute int

	// Сессия шлюза
	SessionSecret string
	SessionTTL    time.Duration
	StateDir      string

	// Обновление алертов
	RefreshInterval time.Duration

	// Карта по умолчанию
	DefaultLatitude  float64
	DefaultLongitude float64
	DefaultZoom      int

	// Загрузка изображений
	MaxImageSize int64

	// CORS
	AllowedOrigins []string
}

func Load() *Config {
	// Загружаем переменные из .env файла
	if err := godotenv.Load(); err != nil {
		log.Debugf("Не удалось загрузить .env файл: %v", err)
	}

	config := &Config{
		Port: getEnv("PORT", "4200"),
		Host: getEnv("HOST", "127.0.0.1"),
		Env:  getEnv("ENV", "development"),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8000/api"),
		APITimeout: time.Duration(getEnvAsInt("API_TIMEOUT", 15)) * time.Second,

		NominatimURL:     getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
		GeocodePerMinute: getEnvAsInt("GEOCODE_PER_MINUTE", 30),

		SessionSecret: getEnv("SESSION_SECRET", "dev-session-secret"),
		SessionTTL:    time.Duration(getEnvAsInt("SESSION_TTL", 24)) * time.Hour,
		StateDir:      getEnv("STATE_DIR", ".alerta-vecinal"),

		RefreshInterval: time.Duration(getEnvAsInt("REFRESH_INTERVAL", 30)) * time.Second,

		DefaultLatitude:  getEnvAsFloat("DEFAULT_LAT", 38.9072),
		DefaultLongitude: getEnvAsFloat("DEFAULT_LNG", -77.0369),
		DefaultZoom:      getEnvAsInt("DEFAULT_ZOOM", 13),

		MaxImageSize: int64(getEnvAsInt("MAX_IMAGE_SIZE", 5<<20)),

		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:4200"}),
	}

	return config
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
