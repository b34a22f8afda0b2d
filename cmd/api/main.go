package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/mannmitra/backend/internal/config"
	"github.com/zhouzirui/mannmitra/backend/internal/gateway"
	"github.com/zhouzirui/mannmitra/backend/internal/handler"
	"github.com/zhouzirui/mannmitra/backend/internal/handler/wellness"
	"github.com/zhouzirui/mannmitra/backend/internal/service/chat"
	"github.com/zhouzirui/mannmitra/backend/internal/service/response"
	"github.com/zhouzirui/mannmitra/backend/internal/service/tools"
	"github.com/zhouzirui/mannmitra/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Persistence service; the chat core reaches it through the gateway client
	var store wellness.Store
	if cfg.Store.Enabled {
		s, err := storage.Open(storage.Config{Type: cfg.Store.Type, DSN: cfg.Store.DSN})
		if err != nil {
			log.Fatalf("failed to open %s store: %v", cfg.Store.Type, err)
		}
		defer s.Close()
		store = s
		log.Printf("%s store ready", cfg.Store.Type)
	} else {
		log.Println("store disabled, persistence routes not mounted")
	}

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:  cfg.Gateway.BaseURL,
		Timeout:  cfg.Gateway.Timeout,
		DemoMode: cfg.Gateway.DemoMode,
	})
	if err != nil {
		log.Fatalf("failed to create gateway client: %v", err)
	}
	if gw.DemoMode() {
		log.Println("demo mode: gateway writes are logged only")
	}

	generator := response.NewGenerator(
		response.WithProbability(cfg.Companion.CulturalProbability),
		response.WithMoodMatching(cfg.Companion.CulturalMoodMatch),
	)
	clk := clock.New()
	launcher := tools.NewLauncher(gw, clk, cfg.Companion.Location, cfg.Gateway.Timeout)

	chatService := chat.NewService(chat.Options{
		Locale:            cfg.Companion.Locale,
		UserID:            cfg.Companion.UserID,
		Location:          cfg.Companion.Location,
		ReplyDelay:        cfg.Companion.ReplyDelay,
		CrisisPromptDelay: cfg.Companion.CrisisPromptDelay,
	}, clk, generator, gw, launcher)

	router := handler.NewRouter(store, chatService, cfg.Server.Heartbeat)

	startServer(ctx, cfg.Server, router)

	chatService.Shutdown()
	launcher.Wait()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("MannMitra backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
