package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/identity-service/internal"
	"github.com/frahmantamala/identity-service/internal/auth"
	"github.com/frahmantamala/identity-service/internal/mailer"
	"github.com/frahmantamala/identity-service/internal/otp"
	"github.com/frahmantamala/identity-service/internal/principal"
	principalpg "github.com/frahmantamala/identity-service/internal/principal/postgres"
	"github.com/frahmantamala/identity-service/internal/transport/middleware"
	"github.com/frahmantamala/identity-service/internal/transport/rest"
	"github.com/frahmantamala/identity-service/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	Router      *chi.Mux
	AuthHandler *auth.Handler
	OTPHandler  *otp.Handler
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	deps.Router.Use(middleware.LoggingMiddleware(deps.Logger))
	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.AuthHandler, deps.OTPHandler, deps.Config.Server.AllowedOrigins, deps.Logger)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Environment)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx pool: %w", err)
	}

	users, operators, rootOperators := principalpg.NewStores(gormDB)
	directory := principal.NewDirectory(users, operators, rootOperators)
	uniqueness := principal.NewUniqueness(directory)

	sessions := auth.NewSessionIssuer(config.Security.JWTSecret, config.Security.TokenExpiry)
	cookies := auth.NewCookieWriter(config.Production())

	authService := auth.NewService(directory, uniqueness, operators, sessions, config.Security.BCryptCost, logger.L())
	authHandler := auth.NewHandler(authService, sessions, cookies)

	var mail mailer.Mailer
	if config.Mail.Host != "" {
		mail = mailer.NewSMTPMailer(&config.Mail)
	}
	resetTokens := otp.NewResetTokenIssuer(config.Security.JWTSecret, config.Security.ResetTokenExpiry)
	otpService := otp.NewService(directory, mail, resetTokens, config.Security.BCryptCost, logger.L())
	otpHandler := otp.NewHandler(otpService)

	return &Dependencies{
		Config:      config,
		Logger:      logger.L(),
		DB:          db,
		Router:      chi.NewRouter(),
		AuthHandler: authHandler,
		OTPHandler:  otpHandler,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
