// Пакет config — загрузка и валидация конфигурации Media Module
// из переменных окружения.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// TypePolicy — политика валидации для одного логического типа файлов.
type TypePolicy struct {
	// Mimetypes — список разрешённых MIME-типов
	Mimetypes []string `json:"mimetypes"`
	// MaxFileSize — максимальный размер файла в мегабайтах (0 = без лимита)
	MaxFileSize int64 `json:"max_file_size"`
}

// FileTypes — карта политик валидации по логическому типу.
// Ключ — имя типа в нижнем регистре ("image", "file", ...).
type FileTypes map[string]TypePolicy

// Config содержит все параметры конфигурации Media Module.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Идентификатор сервиса для метрик topologymetrics
	ServiceID string
	// Корневая директория диска хранения (MM_UPLOAD_DISK)
	UploadDisk string
	// Директория временных файлов (materialized uploads, чанки)
	TmpDir string
	// Базовый публичный URL для отдачи файлов (опционально)
	PublicBaseURL string
	// Включена ли оптимизация изображений после записи
	ImageOptimizer bool
	// Политики валидации по логическим типам
	FileTypes FileTypes
	// TTL сессии chunked-загрузки
	ChunkSessionTTL time.Duration
	// Максимальное количество одновременных chunked-сессий
	ChunkSessionMax int
	// Параметры подключения к PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
}

// defaultFileTypes — политики по умолчанию, если MM_FILE_TYPES не задана.
// Соответствуют стандартной поставке файл-менеджера CMS.
func defaultFileTypes() FileTypes {
	return FileTypes{
		"image": {
			Mimetypes: []string{
				"image/jpeg",
				"image/pjpeg",
				"image/png",
				"image/gif",
				"image/svg+xml",
				"image/webp",
			},
			MaxFileSize: 5,
		},
		"file": {
			Mimetypes: []string{
				"application/pdf",
				"application/zip",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				"application/vnd.ms-excel",
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"text/plain; charset=utf-8",
				"text/plain",
			},
			MaxFileSize: 0,
		},
	}
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// MM_PORT — порт HTTP-сервера (по умолчанию 8020)
	cfg.Port, err = getEnvInt("MM_PORT", 8020)
	if err != nil {
		return nil, fmt.Errorf("MM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// MM_SERVICE_ID — идентификатор сервиса (по умолчанию "media-module")
	cfg.ServiceID = getEnvDefault("MM_SERVICE_ID", "media-module")

	// MM_UPLOAD_DISK — обязательный, корень диска хранения
	cfg.UploadDisk, err = getEnvRequired("MM_UPLOAD_DISK")
	if err != nil {
		return nil, err
	}

	// MM_TMP_DIR — директория временных файлов (по умолчанию системная)
	cfg.TmpDir = getEnvDefault("MM_TMP_DIR", os.TempDir())

	// MM_PUBLIC_BASE_URL — публичный базовый URL (опционально)
	cfg.PublicBaseURL = strings.TrimSuffix(getEnvDefault("MM_PUBLIC_BASE_URL", ""), "/")

	// MM_IMAGE_OPTIMIZER — оптимизация изображений (по умолчанию false)
	cfg.ImageOptimizer, err = getEnvBool("MM_IMAGE_OPTIMIZER", false)
	if err != nil {
		return nil, fmt.Errorf("MM_IMAGE_OPTIMIZER: %w", err)
	}

	// MM_FILE_TYPES — JSON-карта политик валидации (по умолчанию встроенная)
	cfg.FileTypes, err = parseFileTypes(os.Getenv("MM_FILE_TYPES"))
	if err != nil {
		return nil, fmt.Errorf("MM_FILE_TYPES: %w", err)
	}

	// MM_CHUNK_SESSION_TTL — TTL chunked-сессии (по умолчанию 1h)
	cfg.ChunkSessionTTL, err = getEnvDuration("MM_CHUNK_SESSION_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MM_CHUNK_SESSION_TTL: %w", err)
	}

	// MM_CHUNK_SESSION_MAX — максимум chunked-сессий (по умолчанию 1024)
	cfg.ChunkSessionMax, err = getEnvInt("MM_CHUNK_SESSION_MAX", 1024)
	if err != nil {
		return nil, fmt.Errorf("MM_CHUNK_SESSION_MAX: %w", err)
	}
	if cfg.ChunkSessionMax <= 0 {
		return nil, fmt.Errorf("MM_CHUNK_SESSION_MAX: значение должно быть положительным")
	}

	// Подключение к PostgreSQL
	cfg.DBHost, err = getEnvRequired("MM_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("MM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("MM_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("MM_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("MM_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("MM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("MM_DB_SSL_MODE", "disable")

	// MM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MM_LOG_LEVEL: %w", err)
	}

	// MM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// MM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// MM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("MM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// MM_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию "media-module")
	cfg.DephealthGroup = getEnvDefault("MM_DEPHEALTH_GROUP", "media-module")

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для golang-migrate
// и лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Policy возвращает политику валидации для логического типа.
// Тип приводится к нижнему регистру. Если политика не задана,
// возвращается пустая (всё запрещено) и ok=false.
func (ft FileTypes) Policy(fileType string) (TypePolicy, bool) {
	policy, ok := ft[strings.ToLower(fileType)]
	return policy, ok
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseFileTypes разбирает JSON-карту политик из переменной окружения.
// Пустая строка — встроенные политики по умолчанию.
// Ключи нормализуются к нижнему регистру.
func parseFileTypes(raw string) (FileTypes, error) {
	if raw == "" {
		return defaultFileTypes(), nil
	}

	var parsed FileTypes
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("некорректный JSON: %w", err)
	}

	normalized := make(FileTypes, len(parsed))
	for name, policy := range parsed {
		if policy.MaxFileSize < 0 {
			return nil, fmt.Errorf("тип %q: max_file_size не может быть отрицательным", name)
		}
		normalized[strings.ToLower(name)] = policy
	}
	return normalized, nil
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
