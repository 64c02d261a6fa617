package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Storage   StorageConfig   `mapstructure:"storage"`
	VLM       VLMConfig       `mapstructure:"vlm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Clean     CleanConfig     `mapstructure:"clean"`
	Generate  GenerateConfig  `mapstructure:"generate"`
	Validate  ValidateConfig  `mapstructure:"validate"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // sqlite, postgres
	Path     string `mapstructure:"path"`   // sqlite file path
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // s3, r2, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	PublicURL string `mapstructure:"public_url"`
}

type VLMConfig struct {
	Provider      string `mapstructure:"provider"`
	Model         string `mapstructure:"model"`
	FallbackModel string `mapstructure:"fallback_model"`
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	MaxTokens     int    `mapstructure:"max_tokens"`
	TimeoutSecs   int    `mapstructure:"timeout_secs"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// PathsConfig holds the default locations of the dataset directories and files.
type PathsConfig struct {
	CaptionsDir   string `mapstructure:"captions_dir"`
	ImagesDir     string `mapstructure:"images_dir"`
	TrainDir      string `mapstructure:"train_dir"`
	Manifest      string `mapstructure:"manifest"`
	AttrFile      string `mapstructure:"attr_file"`
	GeneratedFile string `mapstructure:"generated_file"`
}

type CleanConfig struct {
	MaxWords int `mapstructure:"max_words"`
	MinChars int `mapstructure:"min_chars"`
}

type GenerateConfig struct {
	Limit int `mapstructure:"limit"` // 0 means all rows
}

type ValidateConfig struct {
	SampleSize    int           `mapstructure:"sample_size"`
	Seed          int64         `mapstructure:"seed"`
	MaxChars      int           `mapstructure:"max_chars"`
	IdealMinWords int           `mapstructure:"ideal_min_words"`
	IdealMaxWords int           `mapstructure:"ideal_max_words"`
	NearDup       NearDupConfig `mapstructure:"near_dup"`
}

// NearDupConfig controls embedding-based near-duplicate detection.
// Requires a running Qdrant instance and an embedding provider.
type NearDupConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Threshold float32 `mapstructure:"threshold"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/capprep.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("qdrant.enabled", false)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.use_tls", false)
	v.SetDefault("qdrant.collection", "captions")
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "caption-datasets")
	v.SetDefault("storage.prefix", "datasets")
	v.SetDefault("vlm.provider", "openai")
	v.SetDefault("vlm.model", "gpt-4o-mini")
	v.SetDefault("vlm.fallback_model", "")
	v.SetDefault("vlm.base_url", "https://api.openai.com/v1")
	v.SetDefault("vlm.max_tokens", 120)
	v.SetDefault("vlm.timeout_secs", 60)
	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.base_url", "https://api.jina.ai/v1")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("paths.captions_dir", "./data/text/celeba-caption")
	v.SetDefault("paths.images_dir", "./data/images")
	v.SetDefault("paths.train_dir", "./data/processed/train")
	v.SetDefault("paths.manifest", "./data/captions/final_captions.csv")
	v.SetDefault("paths.attr_file", "./data/list_attr_celeba.csv")
	v.SetDefault("paths.generated_file", "./data/captions/fine_tuned_criminal_captions.csv")
	v.SetDefault("clean.max_words", 30)
	v.SetDefault("clean.min_chars", 5)
	v.SetDefault("generate.limit", 0)
	v.SetDefault("validate.sample_size", 15)
	v.SetDefault("validate.seed", 42)
	v.SetDefault("validate.max_chars", 300)
	v.SetDefault("validate.ideal_min_words", 10)
	v.SetDefault("validate.ideal_max_words", 30)
	v.SetDefault("validate.near_dup.enabled", false)
	v.SetDefault("validate.near_dup.threshold", 0.97)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("vlm.api_key", "OPENAI_API_KEY")
	v.BindEnv("vlm.base_url", "OPENAI_BASE_URL")
	v.BindEnv("vlm.model", "VLM_MODEL")
	v.BindEnv("vlm.fallback_model", "VLM_FALLBACK_MODEL")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
