package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port         string
	Env          string
	Log          LogConfig
	Build        BuildConfig
	ProjectStore ProjectStoreConfig
	Artifact     ArtifactConfig
	Assistant    AssistantConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type BuildConfig struct {
	CDNTemplate string
	CacheSize   int
	CacheBytes  int
	CacheTTL    time.Duration
}

type ProjectStoreConfig struct {
	Kind string
	DSN  string
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type AssistantConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	RPS      float64
	Burst    int
}

// Load reads .env when present and resolves the configuration from the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(NewViper())
}

// NewViper returns a viper instance bound to the environment with every
// default set. Keys are the lowercase environment variable names.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", "8081")
	v.SetDefault("app_env", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("cdn_template", "https://esm.sh/{pkg}")
	v.SetDefault("build_cache_size", 128)
	v.SetDefault("build_cache_bytes", 64<<20)
	v.SetDefault("build_cache_ttl", "10m")
	v.SetDefault("project_store", "memory")
	v.SetDefault("project_store_dsn", "")
	v.SetDefault("artifact_s3_endpoint", "")
	v.SetDefault("artifact_s3_region", "us-east-1")
	v.SetDefault("artifact_s3_access_key", "")
	v.SetDefault("artifact_s3_secret_key", "")
	v.SetDefault("artifact_s3_bucket", "previewkit-artifacts")
	v.SetDefault("artifact_s3_use_ssl", true)
	v.SetDefault("minio_root_user", "")
	v.SetDefault("minio_root_password", "")
	v.SetDefault("assistant_provider", "")
	v.SetDefault("assistant_api_key", "")
	v.SetDefault("assistant_base_url", "")
	v.SetDefault("assistant_model", "")
	v.SetDefault("assistant_rps", 0)
	v.SetDefault("assistant_burst", 1)
	return v
}

func FromViper(v *viper.Viper) (*Config, error) {
	env := firstNonEmpty(strings.TrimSpace(v.GetString("app_env")), "local")
	return &Config{
		Port: normalizePort(v.GetString("port")),
		Env:  env,
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Build: BuildConfig{
			CDNTemplate: strings.TrimSpace(v.GetString("cdn_template")),
			CacheSize:   v.GetInt("build_cache_size"),
			CacheBytes:  v.GetInt("build_cache_bytes"),
			CacheTTL:    v.GetDuration("build_cache_ttl"),
		},
		ProjectStore: ProjectStoreConfig{
			Kind: strings.ToLower(strings.TrimSpace(v.GetString("project_store"))),
			DSN:  strings.TrimSpace(v.GetString("project_store_dsn")),
		},
		Artifact:  loadArtifactConfig(v, env),
		Assistant: loadAssistantConfig(v),
	}, nil
}

func loadArtifactConfig(v *viper.Viper, env string) ArtifactConfig {
	endpoint := strings.TrimSpace(v.GetString("artifact_s3_endpoint"))
	useSSL := v.GetBool("artifact_s3_use_ssl")
	if strings.EqualFold(env, "local") {
		useSSL = false
	}
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(v.GetString("artifact_s3_region")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(v.GetString("artifact_s3_access_key")), strings.TrimSpace(v.GetString("minio_root_user"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(v.GetString("artifact_s3_secret_key")), strings.TrimSpace(v.GetString("minio_root_password"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(v.GetString("artifact_s3_bucket")), "previewkit-artifacts"),
		UseSSL:    useSSL,
	}
}

func loadAssistantConfig(v *viper.Viper) AssistantConfig {
	return AssistantConfig{
		Provider: strings.ToLower(strings.TrimSpace(v.GetString("assistant_provider"))),
		APIKey:   strings.TrimSpace(v.GetString("assistant_api_key")),
		BaseURL:  strings.TrimSpace(v.GetString("assistant_base_url")),
		Model:    strings.TrimSpace(v.GetString("assistant_model")),
		RPS:      v.GetFloat64("assistant_rps"),
		Burst:    v.GetInt("assistant_burst"),
	}
}

// AssistantEnabled reports whether a provider is configured.
func (c *Config) AssistantEnabled() bool {
	return c.Assistant.Provider != "" && c.Assistant.APIKey != ""
}

func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8081"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
