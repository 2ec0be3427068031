package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"moviestore/internal/config"
	"moviestore/internal/handler"
	"moviestore/internal/infra/catalog"
	"moviestore/internal/infra/db"
	"moviestore/internal/infra/gcp"
	"moviestore/internal/infra/identity"
	infraRepo "moviestore/internal/infra/repository"
	"moviestore/internal/infra/token"
	"moviestore/internal/localstore"
	"moviestore/internal/metrics"
	"moviestore/internal/repository"
	"moviestore/internal/server"
	"moviestore/internal/storefront"
	"moviestore/internal/usecase"
	"moviestore/internal/validator"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	autoMigrate bool
	idleAfter   time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run migrations before serving")
	serveCmd.Flags().DurationVar(&idleAfter, "idle-evict", 30*time.Minute, "drop in-memory client state after this much inactivity")
}

func serve(ctx context.Context, cfg config.Config) error {
	log := slog.Default()

	//DB接続（usersは常にpostgres）
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if autoMigrate {
		if err := db.Migrate(gormDB, cfg.LedgerDriver == config.LedgerPostgres); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	//Firebase（federatedログイン or firestore台帳のとき）
	var gc *gcp.Clients
	if cfg.FederatedEnabled() {
		gc, err = gcp.New(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile, cfg.LedgerDriver == config.LedgerFirestore)
		if err != nil {
			return err
		}
		defer gc.Close()
	}

	//Repository生成
	users := infraRepo.NewUserGormRepository(gormDB)
	var ledger repository.AccountRepository
	switch cfg.LedgerDriver {
	case config.LedgerFirestore:
		ledger = infraRepo.NewAccountRepositoryFS(gc.Firestore)
	default:
		ledger = infraRepo.NewAccountGormRepository(gormDB)
	}

	store, closeStore, err := openLocalStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	//認証サービス
	var federated identity.FederatedVerifier
	if gc != nil {
		federated = identity.NewFirebaseVerifier(gc.Auth)
	}
	idp := identity.NewProvider(
		users,
		identity.NewBcryptPasswordHasher(bcrypt.DefaultCost),
		identity.NewBcryptPasswordVerifier(),
		identity.UUIDGenerator{},
		identity.RealClock{},
		federated,
	)
	issuer := token.NewJWTIssuer(cfg.JWTSecret, cfg.TokenTTL)

	tmdb := catalog.NewClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, cfg.TMDBTimeout)
	rec := metrics.New()

	//クライアントごとの状態コンテナ
	reg := storefront.NewRegistry(storefront.Deps{
		Store:          store,
		Ledger:         ledger,
		Catalog:        tmdb,
		Recorder:       rec,
		PageSize:       cfg.PageSize,
		DebounceWindow: cfg.DebounceWindow,
		SearchTimeout:  cfg.TMDBTimeout,
		Logger:         log,
	})
	defer reg.Close()
	go reg.RunJanitor(ctx, time.Minute, idleAfter)

	//Usecase生成
	v := validator.NewAuthValidator()
	authUC := usecase.NewAuthUsecase(idp, ledger, issuer, v, log)
	settingsUC := usecase.NewSettingsUsecase(idp, ledger, v, log)
	catalogUC := usecase.NewCatalogUsecase(tmdb, log)
	cartUC := usecase.NewCartUsecase(log)

	//Handler生成
	e := server.New(server.Handlers{
		Auth:     handler.NewAuthHandler(authUC),
		Settings: handler.NewSettingsHandler(settingsUC),
		Cart:     handler.NewCartHandler(cartUC),
		Movies:   handler.NewMovieHandler(catalogUC),
		Search:   handler.NewSearchHandler(catalogUC),
	}, server.Options{
		Registry:     reg,
		Verifier:     issuer,
		Users:        users,
		Recorder:     rec,
		CookieSecure: cfg.CookieSecure,
		Logger:       log,
	})

	//Server起動
	return server.Run(ctx, e, ":"+cfg.Port, log)
}

// openLocalStoreはLOCAL_STORE_DRIVERに応じてストアを開く
func openLocalStore(ctx context.Context, cfg config.Config) (localstore.Store, func(), error) {
	switch cfg.LocalStoreDriver {
	case config.StoreMemory:
		return localstore.NewMemoryStore(), func() {}, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return localstore.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		s, err := localstore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}
