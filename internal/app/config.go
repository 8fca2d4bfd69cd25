package app

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/buyerdesk-backend/internal/data/db"
	"github.com/yungbote/buyerdesk-backend/internal/platform/envutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/llm"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/realtime/bus"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	DB db.Config

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	LLM            llm.Config
	DraftMaxTokens int

	Redis bus.RedisConfig

	TemplateMaxBytes  int64
	TemplateMaxPrompt int
	FetchTimeout      time.Duration
	ScrapeTimeout     time.Duration

	StageCatalogPath string
	CORSOrigins      []string
}

// LoadDotEnv loads .env when present. Real environment variables win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", "postgres"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "buyerdesk"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "buyerdesk.db"),
			MaxOpenConns:     envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     envutil.Int("DB_MAX_IDLE_CONNS", 5),
			SlowQuery:        envutil.Duration("DB_SLOW_QUERY", 500*time.Millisecond),
		},
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", 12*time.Hour),
		LLM: llm.Config{
			Provider:         envutil.String("LLM_PROVIDER", ""),
			Model:            envutil.String("LLM_MODEL", ""),
			Timeout:          envutil.Duration("LLM_TIMEOUT", 120*time.Second),
			AnthropicAPIKey:  envutil.String("ANTHROPIC_API_KEY", ""),
			AnthropicBaseURL: envutil.String("ANTHROPIC_BASE_URL", ""),
			OAIBaseURL:       envutil.String("OAI_BASE_URL", ""),
			OAIAPIKey:        envutil.String("OAI_API_KEY", ""),
			GoogleAPIKey:     envutil.String("GOOGLE_API_KEY", ""),
		},
		DraftMaxTokens: envutil.Int("DRAFT_MAX_TOKENS", 1500),
		Redis: bus.RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_CHANNEL", "buyerdesk:sse"),
		},
		TemplateMaxBytes:  int64(envutil.Int("TEMPLATE_MAX_BYTES", 20<<20)),
		TemplateMaxPrompt: envutil.Int("TEMPLATE_MAX_PROMPT_CHARS", 60000),
		FetchTimeout:      envutil.Duration("TEMPLATE_FETCH_TIMEOUT", 60*time.Second),
		ScrapeTimeout:     envutil.Duration("SCRAPE_TIMEOUT", 20*time.Second),
		StageCatalogPath:  envutil.String("STAGE_CATALOG_PATH", ""),
		CORSOrigins:       envutil.CSV("CORS_ORIGINS", nil),
	}
	if cfg.JWTSecretKey == "defaultsecret" && log != nil {
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	return cfg
}
