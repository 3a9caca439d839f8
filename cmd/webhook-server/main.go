// Command webhook-server runs the cherry-pick app as a direct GitHub
// webhook receiver, an alternative front door to cmd/server's SQS-fed
// worker for installations that deliver webhooks straight to an HTTP
// endpoint instead of through a queue.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ealebed/context-cherry-pick/internal/cherry"
	"github.com/ealebed/context-cherry-pick/internal/config"
	"github.com/ealebed/context-cherry-pick/internal/resolution"
	"github.com/ealebed/context-cherry-pick/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	resolutionClient, err := resolution.NewDefaultClient(
		cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantAPIKey, cfg.QdrantUseTLS,
		cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel,
		resolution.Config{
			CollectionName: cfg.QdrantCollectionName,
			Dim:            cfg.QdrantDim,
			ScoreThreshold: float32(cfg.QdrantScoreThreshold),
		},
	)
	if err != nil {
		log.Fatalf("build resolution index client: %v", err)
	}
	if err := resolutionClient.EnsureCollection(context.Background()); err != nil {
		log.Fatalf("ensure resolution collection: %v", err)
	}

	// The cherry package is configured globally so both the webhook
	// receiver and (if ever colocated) an SQS-fed processor share one
	// resolution index and confidence threshold.
	cherry.Configure(resolutionClient, cfg.MinSuccessRate)

	server := &webhook.Server{
		AppID:           cfg.AppID,
		PrivateKeyPEM:   cfg.PrivateKeyPEM,
		WebhookSecret:   cfg.WebhookSecret,
		GitUserName:     cfg.GitUserName,
		GitUserEmail:    cfg.GitUserEmail,
		ResolutionIndex: resolutionClient,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/webhook", server)
	mux.Handle("/resolutions/", server)

	srv := &http.Server{
		Addr:              cfg.ListenPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("webhook_server.start", "addr", cfg.ListenPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("webhook_server.error", "err", err)
			stop <- syscall.SIGTERM
		}
	}()

	<-stop
	slog.Info("shutdown.begin")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server.shutdown.error", "err", err)
	}
	slog.Info("shutdown.complete")
}
