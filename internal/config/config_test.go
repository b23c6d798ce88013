package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// clearAllMMEnvVars очищает все переменные окружения MM_* для чистого
// теста и возвращает функцию восстановления.
func clearAllMMEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"MM_PORT", "MM_SERVICE_ID", "MM_UPLOAD_DISK", "MM_TMP_DIR",
		"MM_PUBLIC_BASE_URL", "MM_IMAGE_OPTIMIZER", "MM_FILE_TYPES",
		"MM_CHUNK_SESSION_TTL", "MM_CHUNK_SESSION_MAX",
		"MM_DB_HOST", "MM_DB_PORT", "MM_DB_NAME", "MM_DB_USER",
		"MM_DB_PASSWORD", "MM_DB_SSL_MODE",
		"MM_LOG_LEVEL", "MM_LOG_FORMAT", "MM_SHUTDOWN_TIMEOUT",
		"MM_DEPHEALTH_CHECK_INTERVAL", "MM_DEPHEALTH_GROUP",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"MM_UPLOAD_DISK": "/var/lib/media",
		"MM_DB_HOST":     "localhost",
		"MM_DB_NAME":     "media_test",
		"MM_DB_USER":     "media",
		"MM_DB_PASSWORD": "secret",
	}
}

// setRequired устанавливает обязательные переменные окружения.
func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range requiredEnvVars() {
		os.Setenv(k, v)
	}
}

// TestLoad_Defaults проверяет значения по умолчанию при минимальной
// конфигурации.
func TestLoad_Defaults(t *testing.T) {
	defer clearAllMMEnvVars(t)()
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 8020 {
		t.Errorf("Port: ожидалось 8020, получено %d", cfg.Port)
	}
	if cfg.ServiceID != "media-module" {
		t.Errorf("ServiceID: ожидалось media-module, получено %q", cfg.ServiceID)
	}
	if cfg.UploadDisk != "/var/lib/media" {
		t.Errorf("UploadDisk: получено %q", cfg.UploadDisk)
	}
	if cfg.TmpDir != os.TempDir() {
		t.Errorf("TmpDir: ожидалась системная, получено %q", cfg.TmpDir)
	}
	if cfg.ImageOptimizer {
		t.Error("ImageOptimizer по умолчанию должен быть выключен")
	}
	if cfg.ChunkSessionTTL != time.Hour {
		t.Errorf("ChunkSessionTTL: ожидалось 1h, получено %v", cfg.ChunkSessionTTL)
	}
	if cfg.ChunkSessionMax != 1024 {
		t.Errorf("ChunkSessionMax: ожидалось 1024, получено %d", cfg.ChunkSessionMax)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort: ожидалось 5432, получено %d", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode: ожидалось disable, получено %q", cfg.DBSSLMode)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось info, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось json, получено %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %v", cfg.ShutdownTimeout)
	}

	// Встроенные политики типов
	if _, ok := cfg.FileTypes.Policy("image"); !ok {
		t.Error("политика image должна присутствовать по умолчанию")
	}
	if _, ok := cfg.FileTypes.Policy("file"); !ok {
		t.Error("политика file должна присутствовать по умолчанию")
	}
}

// TestLoad_MissingRequired проверяет ошибку при отсутствии каждой
// обязательной переменной.
func TestLoad_MissingRequired(t *testing.T) {
	for missing := range requiredEnvVars() {
		func() {
			defer clearAllMMEnvVars(t)()
			for k, v := range requiredEnvVars() {
				if k != missing {
					os.Setenv(k, v)
				}
			}

			_, err := Load()
			if err == nil {
				t.Errorf("без %s загрузка должна провалиться", missing)
				return
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("ошибка должна называть переменную %s: %v", missing, err)
			}
		}()
	}
}

// TestLoad_InvalidPort проверяет валидацию диапазона порта.
func TestLoad_InvalidPort(t *testing.T) {
	defer clearAllMMEnvVars(t)()
	setRequired(t)

	for _, port := range []string{"0", "70000", "abc"} {
		os.Setenv("MM_PORT", port)
		if _, err := Load(); err == nil {
			t.Errorf("MM_PORT=%s должен вызывать ошибку", port)
		}
	}
}

// TestLoad_FileTypesJSON проверяет разбор политик из MM_FILE_TYPES.
func TestLoad_FileTypesJSON(t *testing.T) {
	defer clearAllMMEnvVars(t)()
	setRequired(t)
	os.Setenv("MM_FILE_TYPES", `{"Video": {"mimetypes": ["video/mp4"], "max_file_size": 100}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	// Ключи нормализуются к нижнему регистру
	policy, ok := cfg.FileTypes.Policy("video")
	if !ok {
		t.Fatal("политика video не найдена")
	}
	if len(policy.Mimetypes) != 1 || policy.Mimetypes[0] != "video/mp4" {
		t.Errorf("Mimetypes: получено %v", policy.Mimetypes)
	}
	if policy.MaxFileSize != 100 {
		t.Errorf("MaxFileSize: ожидалось 100, получено %d", policy.MaxFileSize)
	}

	// Явная карта замещает встроенную
	if _, ok := cfg.FileTypes.Policy("image"); ok {
		t.Error("явная карта политик не должна дополняться встроенной")
	}
}

// TestLoad_FileTypesInvalidJSON проверяет ошибку на некорректном JSON.
func TestLoad_FileTypesInvalidJSON(t *testing.T) {
	defer clearAllMMEnvVars(t)()
	setRequired(t)
	os.Setenv("MM_FILE_TYPES", "{не json")

	if _, err := Load(); err == nil {
		t.Error("некорректный JSON в MM_FILE_TYPES должен вызывать ошибку")
	}
}

// TestLoad_PublicBaseURLTrimmed проверяет срезание завершающего слэша.
func TestLoad_PublicBaseURLTrimmed(t *testing.T) {
	defer clearAllMMEnvVars(t)()
	setRequired(t)
	os.Setenv("MM_PUBLIC_BASE_URL", "https://cdn.example.com/media/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}
	if cfg.PublicBaseURL != "https://cdn.example.com/media" {
		t.Errorf("завершающий слэш должен срезаться: %q", cfg.PublicBaseURL)
	}
}

// TestLoad_InvalidLogLevel проверяет ошибку на недопустимом уровне.
func TestLoad_InvalidLogLevel(t *testing.T) {
	defer clearAllMMEnvVars(t)()
	setRequired(t)
	os.Setenv("MM_LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Error("недопустимый уровень логирования должен вызывать ошибку")
	}
}

// TestPolicy_CaseInsensitive проверяет выбор политики без учёта регистра.
func TestPolicy_CaseInsensitive(t *testing.T) {
	ft := FileTypes{"image": {Mimetypes: []string{"image/png"}}}

	if _, ok := ft.Policy("IMAGE"); !ok {
		t.Error("тип должен искаться без учёта регистра")
	}
	if _, ok := ft.Policy("video"); ok {
		t.Error("отсутствующая политика должна возвращать ok=false")
	}
}

// TestDatabaseURL проверяет построение URL подключения.
func TestDatabaseURL(t *testing.T) {
	cfg := &Config{
		DBHost: "db.local", DBPort: 5433, DBName: "media",
		DBUser: "u", DBPassword: "p", DBSSLMode: "require",
	}

	want := "postgres://u:p@db.local:5433/media?sslmode=require"
	if got := cfg.DatabaseURL(); got != want {
		t.Errorf("ожидалось %s, получено %s", want, got)
	}
}
