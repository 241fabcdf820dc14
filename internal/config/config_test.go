package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("chartsql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Store.Backend != StoreBackendPostgres {
		t.Fatalf("Store.Backend = %q", cfg.Store.Backend)
	}
	if cfg.Store.MaxOpenConns != 20 {
		t.Fatalf("Store.MaxOpenConns = %d", cfg.Store.MaxOpenConns)
	}
	if cfg.DataSource.Driver != DriverPostgres {
		t.Fatalf("DataSource.Driver = %q", cfg.DataSource.Driver)
	}
	if !cfg.DataSource.ReadOnly {
		t.Fatal("DataSource.ReadOnly should default to true")
	}
	if cfg.Archive.Enabled {
		t.Fatal("Archive.Enabled should default to false")
	}
	if cfg.AI.Primary.Provider != ProviderHTTP {
		t.Fatalf("AI.Primary.Provider = %q", cfg.AI.Primary.Provider)
	}
	if cfg.AI.Primary.Model != "gpt-5" {
		t.Fatalf("AI.Primary.Model = %q", cfg.AI.Primary.Model)
	}
	if cfg.AI.Fallback != cfg.AI.Primary {
		t.Fatalf("AI.Fallback = %#v, want copy of primary", cfg.AI.Fallback)
	}
}

func TestLoadTestProfileUsesMemoryStore(t *testing.T) {
	cfg, err := Load("chartsql-api", mapLookup(map[string]string{"CHARTSQL_PROFILE": "test"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != StoreBackendMemory {
		t.Fatalf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.HTTP.Address != ":18080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"CHARTSQL_PROFILE": "prod"})
	cfg, err := Load("chartsql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"CHARTSQL_PROFILE":                     "test",
		"CHARTSQL_HTTP_ADDR":                   ":9999",
		"CHARTSQL_HTTP_READ_TIMEOUT":           "2s",
		"CHARTSQL_HTTP_WRITE_TIMEOUT":          "3s",
		"CHARTSQL_LOG_LEVEL":                   "error",
		"CHARTSQL_AUTH_REQUIRED":               "true",
		"CHARTSQL_AUTH_STATIC_KEYS":            "k1:web:chat_user",
		"CHARTSQL_SERVICE_NAME":                "chartsql-custom",
		"CHARTSQL_STORE_BACKEND":               "badger",
		"CHARTSQL_STORE_BADGER_DIR":            "/var/lib/chartsql",
		"CHARTSQL_STORE_TITLE_CACHE_TTL":       "1m",
		"CHARTSQL_STORE_MAX_OPEN_CONNS":        "42",
		"CHARTSQL_DATASOURCE_DRIVER":           "sqlserver",
		"CHARTSQL_DATASOURCE_DSN":              "sqlserver://sa:pw@localhost:1433?database=sales",
		"CHARTSQL_DATASOURCE_READ_ONLY":        "false",
		"CHARTSQL_DATASOURCE_MAX_OPEN_CONNS":   "7",
		"CHARTSQL_DATASOURCE_LAKE_TABLES":      "orders=lake/orders",
		"CHARTSQL_OBJECTSTORE_ENDPOINT":        "s3.example.com",
		"CHARTSQL_OBJECTSTORE_BUCKET":          "chartsql-prod",
		"CHARTSQL_OBJECTSTORE_USE_SSL":         "true",
		"CHARTSQL_ARCHIVE_ENABLED":             "true",
		"CHARTSQL_ARCHIVE_PREFIX":              "results",
		"CHARTSQL_AI_SYSTEM_PROMPT_PATH":       "/etc/chartsql/prompt.md",
		"CHARTSQL_AI_PRIMARY_PROVIDER":         "OpenAI",
		"CHARTSQL_AI_PRIMARY_BASE_URL":         "https://api.example.com/v1",
		"CHARTSQL_AI_PRIMARY_API_KEY":          "secret-key",
		"CHARTSQL_AI_PRIMARY_MODEL":            "gpt-5.2",
		"CHARTSQL_AI_PRIMARY_TEMPERATURE":      "0.3",
		"CHARTSQL_AI_PRIMARY_TIMEOUT":          "21s",
		"CHARTSQL_AI_FALLBACK_PROVIDER":        "eino",
		"CHARTSQL_AI_FALLBACK_MODEL":           "gpt-5-mini",
		"CHARTSQL_AI_FALLBACK_JSON_MODE":       "false",
	})
	cfg, err := Load("chartsql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "chartsql-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false, want true")
	}
	if cfg.Auth.StaticKeys != "k1:web:chat_user" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
	if cfg.Store.Backend != StoreBackendBadger {
		t.Fatalf("Store.Backend = %q", cfg.Store.Backend)
	}
	if cfg.Store.BadgerDir != "/var/lib/chartsql" {
		t.Fatalf("Store.BadgerDir = %q", cfg.Store.BadgerDir)
	}
	if cfg.Store.TitleCacheTTL != time.Minute {
		t.Fatalf("Store.TitleCacheTTL = %s", cfg.Store.TitleCacheTTL)
	}
	if cfg.Store.MaxOpenConns != 42 {
		t.Fatalf("Store.MaxOpenConns = %d", cfg.Store.MaxOpenConns)
	}
	if cfg.DataSource.Driver != DriverSQLServer {
		t.Fatalf("DataSource.Driver = %q", cfg.DataSource.Driver)
	}
	if cfg.DataSource.ReadOnly {
		t.Fatal("DataSource.ReadOnly = true, want false")
	}
	if cfg.DataSource.MaxOpenConns != 7 {
		t.Fatalf("DataSource.MaxOpenConns = %d", cfg.DataSource.MaxOpenConns)
	}
	if cfg.DataSource.LakeTables != "orders=lake/orders" {
		t.Fatalf("DataSource.LakeTables = %q", cfg.DataSource.LakeTables)
	}
	if cfg.ObjectStore.Bucket != "chartsql-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Prefix != "results" {
		t.Fatalf("Archive = %#v", cfg.Archive)
	}
	if cfg.AI.SystemPromptPath != "/etc/chartsql/prompt.md" {
		t.Fatalf("AI.SystemPromptPath = %q", cfg.AI.SystemPromptPath)
	}
	if cfg.AI.Primary.Provider != ProviderOpenAI {
		t.Fatalf("AI.Primary.Provider = %q", cfg.AI.Primary.Provider)
	}
	if cfg.AI.Primary.Temperature != 0.3 {
		t.Fatalf("AI.Primary.Temperature = %f", cfg.AI.Primary.Temperature)
	}
	if cfg.AI.Primary.Timeout != 21*time.Second {
		t.Fatalf("AI.Primary.Timeout = %s", cfg.AI.Primary.Timeout)
	}
	if cfg.AI.Fallback.Provider != ProviderEino {
		t.Fatalf("AI.Fallback.Provider = %q", cfg.AI.Fallback.Provider)
	}
	if cfg.AI.Fallback.Model != "gpt-5-mini" {
		t.Fatalf("AI.Fallback.Model = %q", cfg.AI.Fallback.Model)
	}
	if cfg.AI.Fallback.APIKey != "secret-key" {
		t.Fatalf("AI.Fallback.APIKey = %q, want inherited primary key", cfg.AI.Fallback.APIKey)
	}
	if cfg.AI.Fallback.JSONMode {
		t.Fatal("AI.Fallback.JSONMode = true, want false")
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"CHARTSQL_PROFILE": "oops"},
		{"CHARTSQL_HTTP_READ_TIMEOUT": "NaN"},
		{"CHARTSQL_STORE_MAX_OPEN_CONNS": "oops"},
		{"CHARTSQL_STORE_BACKEND": "redis"},
		{"CHARTSQL_DATASOURCE_DRIVER": "oracle"},
		{"CHARTSQL_DATASOURCE_READ_ONLY": "maybe"},
		{"CHARTSQL_AI_PRIMARY_TEMPERATURE": "bad"},
		{"CHARTSQL_AI_FALLBACK_PROVIDER": "anthropic"},
		{"CHARTSQL_AUTH_REQUIRED": "not-bool"},
		{"CHARTSQL_LOG_LEVEL": "verbose"},
		{"CHARTSQL_HTTP_ADDR": " "},
	}
	for _, env := range tests {
		_, err := Load("chartsql-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
