// Command trainer walks a local repository's history, mining merge
// commits for resolution patterns and recording them in the resolution
// index ahead of time, so the live engine has patterns to match against
// on day one rather than learning purely online.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ealebed/context-cherry-pick/internal/config"
	"github.com/ealebed/context-cherry-pick/internal/gitrepo"
	"github.com/ealebed/context-cherry-pick/internal/orchestrator"
	"github.com/ealebed/context-cherry-pick/internal/resolution"
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
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	repoDir := flag.String("repo", ".", "path to a git working directory to mine for resolution patterns")
	depth := flag.Int("depth", 5000, "maximum number of commits to walk from HEAD")
	flag.Parse()

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

	ctx := context.Background()
	if err := resolutionClient.EnsureCollection(ctx); err != nil {
		log.Fatalf("ensure resolution collection: %v", err)
	}

	gw := gitrepo.Open(*repoDir)
	orch := orchestrator.New(gw, resolutionClient, gitrepo.Identity{
		Name:  cfg.GitUserName,
		Email: cfg.GitUserEmail,
	})

	learned, err := orch.TrainOnHistory(ctx, *depth)
	if err != nil {
		log.Fatalf("train on history: %v", err)
	}
	slog.Info("trainer.done", "repo", *repoDir, "depth", *depth, "patterns_learned", learned)
}
