package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/config"
	"pubquiz-service/internal/infra/fsstore"
	redisindex "pubquiz-service/internal/infra/redis"
	transport "pubquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port, dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, *dataDir)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag, dataDirFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	finalDataDir := dataDirFlag
	if finalDataDir == "" {
		finalDataDir = cfg.Data.Dir
	}

	service, err := buildService(cfg, finalDataDir)
	if err != nil {
		return err
	}

	handler := transport.NewHandler(service)
	scoreboard := transport.NewScoreboardHandler(service, 2*time.Second)

	mux := handler.Routes()
	mux.HandleFunc("/ws/scoreboard", scoreboard.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.CORS(cfg.Server.Origins, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket scoreboard streams indefinitely
	}

	go func() {
		log.Printf("starting pub quiz service on :%s (data dir %s)", finalPort, finalDataDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildService wires the file store and the optional redis token index.
func buildService(cfg config.Config, dataDir string) (*app.QuizService, error) {
	store, err := fsstore.New(dataDir)
	if err != nil {
		return nil, err
	}

	var tokens app.TokenIndex
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
		tokens = redisindex.NewTokenIndex(client, ttl)
	}

	return app.NewQuizService(store, tokens), nil
}
