package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// AWSConfig holds the credentials shared by every AWS client.
// Empty keys mean the default credential chain is used.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Config holds object storage settings. Any S3-compatible endpoint works.
type S3Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	CreateBucket  bool
	PublicBaseURL string
	PresignTTLSec int
}

// SummaryConfig selects and configures the summarization model.
type SummaryConfig struct {
	Provider      string
	BedrockModel  string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
}

// FlowConfig points at the classification flow.
type FlowConfig struct {
	ARN   string
	Alias string
}

// AgentConfig points at the orchestration agent service.
type AgentConfig struct {
	URL             string
	TimeoutSec      int
	FallbackOnError bool
}

// STTConfig configures the speech-to-text pipeline.
type STTConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	MaxUploadBytes int
	SampleRate     int
}

// RateLimitConfig bounds requests per client on the AI routes.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// AppConfig is the centralized configuration struct for the application.
type AppConfig struct {
	AppHost        string
	Port           string
	Environment    string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
	DigestCron     string
	Database       DatabaseConfig
	AWS            AWSConfig
	S3             S3Config
	Summary        SummaryConfig
	Flow           FlowConfig
	Agent          AgentConfig
	STT            STTConfig
	RateLimit      RateLimitConfig
}

const (
	EnvDevelopment = "development"

	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"

	defaultModelID = "anthropic.claude-3-5-haiku-20241022-v1:0"
)

// ApplyDefaults binds environment variables and registers defaults on v.
// Keys are the environment variable names themselves.
func ApplyDefaults(v *viper.Viper) {
	v.AutomaticEnv()

	v.SetDefault("APP_HOST", "localhost:8080")
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_TIMEZONE", "UTC")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("DIGEST_CRON", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "journal_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SEC", 300)

	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")

	v.SetDefault("S3_ENDPOINT", "s3.amazonaws.com")
	v.SetDefault("S3_BUCKET_NAME", "")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("S3_CREATE_BUCKET", false)
	v.SetDefault("S3_PUBLIC_BASE_URL", "")
	v.SetDefault("S3_PRESIGN_TTL_SEC", 900)

	v.SetDefault("SUMMARY_PROVIDER", ProviderBedrock)
	v.SetDefault("BEDROCK_MODEL_ID", defaultModelID)
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")

	v.SetDefault("BEDROCK_FLOW_ARN", "")
	v.SetDefault("BEDROCK_FLOW_ALIAS", "LIVE")

	v.SetDefault("AGENT_API_URL", "")
	v.SetDefault("AGENT_TIMEOUT_SEC", 60)
	v.SetDefault("AGENT_FALLBACK_ON_ERROR", false)

	v.SetDefault("STT_API_KEY", "")
	v.SetDefault("STT_BASE_URL", "")
	v.SetDefault("STT_MODEL", "whisper-1")
	v.SetDefault("STT_LANGUAGE", "ko")
	v.SetDefault("STT_MAX_UPLOAD_BYTES", 10*1024*1024)
	v.SetDefault("STT_SAMPLE_RATE", 16000)

	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// Load builds an AppConfig from v. Real environment variables take precedence over defaults;
// a .env file is picked up by importing _ "github.com/joho/godotenv/autoload" in main.
func Load(v *viper.Viper) (*AppConfig, error) {
	aws := AWSConfig{
		Region:          v.GetString("AWS_REGION"),
		AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
	}

	sttKey := v.GetString("STT_API_KEY")
	if sttKey == "" {
		sttKey = v.GetString("OPENAI_API_KEY")
	}

	cfg := &AppConfig{
		AppHost:        v.GetString("APP_HOST"),
		Port:           v.GetString("PORT"),
		Environment:    strings.ToLower(v.GetString("ENVIRONMENT")),
		LogLevel:       v.GetString("LOG_LEVEL"),
		Timezone:       v.GetString("APP_TIMEZONE"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		DigestCron:     strings.TrimSpace(v.GetString("DIGEST_CRON")),
		Database: DatabaseConfig{
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetString("DB_PORT"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			Name:               v.GetString("DB_NAME"),
			SSLMode:            v.GetString("DB_SSLMODE"),
			MaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetimeSec: v.GetInt("DB_CONN_MAX_LIFETIME_SEC"),
		},
		AWS: aws,
		S3: S3Config{
			Endpoint:      v.GetString("S3_ENDPOINT"),
			Region:        aws.Region,
			AccessKey:     aws.AccessKeyID,
			SecretKey:     aws.SecretAccessKey,
			Bucket:        v.GetString("S3_BUCKET_NAME"),
			UseSSL:        v.GetBool("S3_USE_SSL"),
			CreateBucket:  v.GetBool("S3_CREATE_BUCKET"),
			PublicBaseURL: strings.TrimRight(v.GetString("S3_PUBLIC_BASE_URL"), "/"),
			PresignTTLSec: v.GetInt("S3_PRESIGN_TTL_SEC"),
		},
		Summary: SummaryConfig{
			Provider:      strings.ToLower(v.GetString("SUMMARY_PROVIDER")),
			BedrockModel:  v.GetString("BEDROCK_MODEL_ID"),
			OpenAIKey:     v.GetString("OPENAI_API_KEY"),
			OpenAIBaseURL: v.GetString("OPENAI_BASE_URL"),
			OpenAIModel:   v.GetString("OPENAI_MODEL"),
		},
		Flow: FlowConfig{
			ARN:   v.GetString("BEDROCK_FLOW_ARN"),
			Alias: v.GetString("BEDROCK_FLOW_ALIAS"),
		},
		Agent: AgentConfig{
			URL:             strings.TrimRight(v.GetString("AGENT_API_URL"), "/"),
			TimeoutSec:      v.GetInt("AGENT_TIMEOUT_SEC"),
			FallbackOnError: v.GetBool("AGENT_FALLBACK_ON_ERROR"),
		},
		STT: STTConfig{
			APIKey:         sttKey,
			BaseURL:        v.GetString("STT_BASE_URL"),
			Model:          v.GetString("STT_MODEL"),
			Language:       v.GetString("STT_LANGUAGE"),
			MaxUploadBytes: v.GetInt("STT_MAX_UPLOAD_BYTES"),
			SampleRate:     v.GetInt("STT_SAMPLE_RATE"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether secrets should come from the environment only.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *AppConfig) validate() error {
	switch c.Summary.Provider {
	case ProviderBedrock, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported SUMMARY_PROVIDER %q", c.Summary.Provider)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
