package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 台帳の実装
const (
	LedgerPostgres  = "postgres"
	LedgerFirestore = "firestore"
)

// ローカルストアの実装
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	DatabaseURL      string // あればPostgres*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret string        // JWT署名シークレット
	TokenTTL  time.Duration // identity tokenの有効期限

	LedgerDriver string // postgres / firestore

	FirebaseProjectID       string
	FirebaseCredentialsFile string // 空ならADC

	LocalStoreDriver string // memory / sqlite / redis
	SQLitePath       string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	TMDBAPIKey  string
	TMDBBaseURL string
	TMDBTimeout time.Duration

	DebounceWindow time.Duration
	PageSize       int
	CookieSecure   bool
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := atoiOr("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	pageSize, err := atoiOr("CART_PAGE_SIZE", 5)
	if err != nil {
		return Config{}, err
	}
	tokenTTL, err := durationOr("TOKEN_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	tmdbTimeout, err := durationOr("TMDB_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	debounce, err := durationOr("SEARCH_DEBOUNCE", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  tokenTTL,

		LedgerDriver: strings.ToLower(getenv("LEDGER_DRIVER", LedgerPostgres)),

		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),

		LocalStoreDriver: strings.ToLower(getenv("LOCAL_STORE_DRIVER", StoreSQLite)),
		SQLitePath:       getenv("SQLITE_PATH", "data/localstore.db"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,

		TMDBAPIKey:  os.Getenv("TMDB_API_KEY"),
		TMDBBaseURL: getenv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBTimeout: tmdbTimeout,

		DebounceWindow: debounce,
		PageSize:       pageSize,
		CookieSecure:   getenv("GO_ENV", "dev") == "prod",
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.TMDBAPIKey == "" {
		return Config{}, fmt.Errorf("TMDB_API_KEY is required")
	}
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
	}

	switch cfg.LedgerDriver {
	case LedgerPostgres:
	case LedgerFirestore:
		if cfg.FirebaseProjectID == "" {
			return Config{}, fmt.Errorf("FIREBASE_PROJECT_ID is required for firestore ledger")
		}
	default:
		return Config{}, fmt.Errorf("LEDGER_DRIVER must be postgres or firestore: %q", cfg.LedgerDriver)
	}

	switch cfg.LocalStoreDriver {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return Config{}, fmt.Errorf("LOCAL_STORE_DRIVER must be memory, sqlite or redis: %q", cfg.LocalStoreDriver)
	}

	if cfg.PageSize < 1 {
		return Config{}, fmt.Errorf("CART_PAGE_SIZE must be positive")
	}

	return cfg, nil
}

// federatedログインはFirebaseのプロジェクトがあるときだけ有効
func (c Config) FederatedEnabled() bool {
	return c.FirebaseProjectID != ""
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
