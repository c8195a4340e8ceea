package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/console"
	"github.com/finestate/hub-backend/internal/entity"
	chatuc "github.com/finestate/hub-backend/internal/usecase/chat"
	"github.com/finestate/hub-backend/internal/voice"
)

type eventPublisher interface {
	PublishUploadStored(ctx context.Context, event *entity.UploadStoredEvent) error
	Close(ctx context.Context) error
}

// App represents the hub server with all its components
type App struct {
	server    *http.Server
	publisher eventPublisher
	chat      *chatuc.ChatUsecase
	logger    *zap.Logger
}

// Run starts the application and all its daemons
func (a *App) Run() error {
	// Start HTTP server in goroutine
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		a.release(context.Background())
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	return a.shutdown()
}

// shutdown gracefully shuts down the application
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")

	// Open reply streams end once their sessions are closed
	a.chat.Close()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
		a.release(ctx)
		return err
	}

	a.release(ctx)
	a.logger.Info("Application stopped gracefully")
	return nil
}

func (a *App) release(ctx context.Context) {
	a.chat.Close()

	a.logger.Info("Closing event publisher")
	if err := a.publisher.Close(ctx); err != nil {
		a.logger.Warn("Event publisher close error", zap.Error(err))
	}

	_ = a.logger.Sync()
}

// ConsoleApp is the terminal chat client.
type ConsoleApp struct {
	console *console.Console
	session *chatcore.Session
	synth   *voice.CommandSynthesizer
	logger  *zap.Logger
}

// Run serves the console until /quit, end of input or SIGINT/SIGTERM.
func (c *ConsoleApp) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := c.console.Run(ctx)

	c.session.Close()
	c.synth.Close()
	_ = c.logger.Sync()

	return err
}
