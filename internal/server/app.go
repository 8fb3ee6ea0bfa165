// Package server initializes and runs the authentication server. It opens
// the database, applies migrations, wires the token, TOTP, and notification
// components into the services, and starts the HTTP API with graceful
// shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avolkovs/authcore/internal/logging"
	"github.com/avolkovs/authcore/internal/server/auth"
	"github.com/avolkovs/authcore/internal/server/config"
	"github.com/avolkovs/authcore/internal/server/httpapi"
	"github.com/avolkovs/authcore/internal/server/notify"
	"github.com/avolkovs/authcore/internal/server/repositories/repomanager"
	"github.com/avolkovs/authcore/internal/server/services"
	"github.com/avolkovs/authcore/internal/server/totp"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	tokens := auth.NewTokenService(
		c.AccessTokenSecret, c.RefreshTokenSecret, c.TempTokenSecret,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, c.TempTokenValidityDuration)
	resetTokens := auth.NewResetTokenSource(c.ResetTokenLength, c.ResetTokenValidityDuration)
	totpService := totp.NewService(c.TOTPIssuer)

	var notifier notify.ResetTokenNotifier
	if c.SMTPHost != "" {
		notifier = notify.NewSMTPNotifier(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	authService := services.NewAuthService(db, rm, tokens, resetTokens,
		totpService, notifier, logger, c.PublicBaseURL)
	twofaService := services.NewTwoFactorService(db, rm, totpService, logger)

	srv := httpapi.NewServer(c.EndpointAddrHTTP, logger, authService, twofaService,
		tokens, c.RefreshTokenValidityDuration, c.SecureCookies)

	app := &App{config: c, logger: logger, db: db, server: srv}

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rm.RunMigrations(migrateCtx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
