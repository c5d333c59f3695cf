package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lib/pq"

	"limitbot/internal/api"
	"limitbot/internal/bot"
	"limitbot/internal/config"
	"limitbot/internal/exchange"
	"limitbot/internal/notify"
	"limitbot/internal/repository"
	"limitbot/internal/service"
	"limitbot/pkg/crypto"
	"limitbot/pkg/ratelimit"
	"limitbot/pkg/retry"
	"limitbot/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", utils.Err(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *utils.Logger) error {
	// Хранилище секретов: без ключа работает passthrough, режим виден в логе,
	// метриках и /healthz
	vault, err := crypto.NewVault(cfg.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}
	bot.SetVaultMode(vault.EncryptionEnabled())
	if vault.EncryptionEnabled() {
		log.Info("credential vault initialized", utils.VaultMode(vault.Mode()))
	} else {
		log.Warn("ENCRYPTION_KEY is not set, exchange credentials are stored in plaintext",
			utils.VaultMode(vault.Mode()))
	}

	if cfg.Security.APITokenHash == "" {
		log.Warn("API_TOKEN_HASH is not set, HTTP API is open")
	}

	orders, users, closeStorage, err := openStorage(cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	// Клиенты бирж создаются на каждый ордер и разделяют HTTP клиент и лимиты
	httpClient := exchange.NewHTTPClient(exchange.DefaultHTTPClientConfig())
	resolver := exchange.NewResolver(vault, exchange.Options{
		HTTPClient:     httpClient,
		Limits:         ratelimit.NewRegistry(cfg.Exchange.RateLimit, cfg.Exchange.RateBurst),
		BinanceBaseURL: cfg.Exchange.BinanceBaseURL,
		BybitBaseURL:   cfg.Exchange.BybitBaseURL,
	})
	oracle := exchange.NewHashOracle()

	// Уведомления: WebSocket, e-mail (если настроен SMTP) и лог
	hub := notify.NewHub()
	go hub.Run()

	notifiers := notify.Multi{hub}
	if cfg.Mail.Enabled() {
		notifiers = append(notifiers, notify.NewMailNotifier(notify.MailConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, users))
		log.Info("e-mail notifications enabled", utils.String("smtp_host", cfg.Mail.Host))
	}
	notifiers = append(notifiers, notify.NewLogNotifier())

	executor := bot.NewExecutor(users, resolver, cfg.Monitor.OrderTimeout)
	monitor := bot.NewMonitor(orders, oracle, executor, notifiers, bot.MonitorConfig{
		Interval:      cfg.Monitor.Interval,
		OracleTimeout: cfg.Monitor.OracleTimeout,
	})

	router := api.SetupRoutes(&api.Dependencies{
		Accounts:      service.NewAccountService(users, vault),
		Orders:        service.NewOrderService(orders, users, executor, oracle),
		Notifications: notify.NewHandler(hub, notify.NewOriginChecker(cfg.Server.AllowedOrigins)),
		Vault:         vault,
		Storage:       cfg.Storage.Driver,
		TokenHash:     cfg.Security.APITokenHash,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		if err := monitor.Run(monitorCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("monitor stopped", utils.Err(err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", utils.String("addr", server.Addr), utils.Storage(cfg.Storage.Driver))
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("shutting down", utils.String("signal", sig.String()))
	case runErr = <-serverErr:
		log.Error("server failed", utils.Err(runErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Монитор завершает текущий ордер и выходит между ордерами
	stopMonitor()
	select {
	case <-monitorDone:
	case <-ctx.Done():
		log.Warn("monitor did not stop in time")
	}
	monitor.Wait()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", utils.Err(err))
	}

	hub.Stop()
	exchange.CloseIdle(httpClient)

	log.Info("server exited")
	return runErr
}

// openStorage открывает хранилище ордеров и пользователей по STORAGE_DRIVER
func openStorage(cfg *config.Config, log *utils.Logger) (*repository.OrderStore, repository.UserStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn("memory storage: orders and users are lost on restart", utils.Storage(cfg.Storage.Driver))
		return repository.NewOrderStore(repository.NewMemoryOrderBackend()), repository.NewMemoryUserStore(), func() {}, nil

	case config.StoragePostgres:
		db, err := initDatabase(cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Error("failed to close database", utils.Err(err))
			}
		}
		return repository.NewOrderStore(repository.NewPostgresOrderBackend(db)), repository.NewPostgresUserStore(db), closeDB, nil

	default:
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
			return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		backend := repository.NewFileOrderBackend(cfg.Storage.DataDir)
		log.Info("file storage", utils.Storage(cfg.Storage.Driver), utils.String("path", backend.Path()))
		return repository.NewOrderStore(backend), repository.NewFileUserStore(cfg.Storage.DataDir), func() {}, nil
	}
}

// initDatabase подключается к PostgreSQL, дожидаясь готовности БД, и применяет миграции
func initDatabase(cfg *config.Config, log *utils.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	retryCfg := retry.StartupConfig()
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("database is not ready",
			utils.Int("attempt", attempt),
			utils.Dur("retry_in", delay),
			utils.Err(err),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err = retry.Do(ctx, func() error {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		return classifyDBError(db.PingContext(pingCtx))
	}, retryCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Database.DSNWithoutPassword(), err)
	}

	applied, err := repository.Migrate(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Info("connected to database",
		utils.String("dsn", cfg.Database.DSNWithoutPassword()),
		utils.Bool("migrations_applied", applied),
	)
	return db, nil
}

// classifyDBError помечает ошибки, которые не исчезнут при повторе:
// неверные учётные данные (класс 28) и отсутствующая база (3D000)
func classifyDBError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code.Class() == "28" || pqErr.Code == "3D000") {
		return retry.Permanent(err)
	}
	return err
}
