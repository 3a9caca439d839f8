package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppID         int64
	WebhookSecret []byte
	PrivateKeyPEM []byte // decoded PEM
	ListenPort    string // ":8080"

	// Optional Git actor
	GitUserName  string // "stabilisation-bot"
	GitUserEmail string // "stabilisation-bot@users.noreply.github.com"

	// AWS/SQS
	AWSRegion             string
	SQSQueueURL           string
	SQSMaxMessages        int32
	SQSWaitTimeSeconds    int32
	SQSVisibilityTimeout  int32
	SQSDeleteOn4xx        bool
	SQSExtendOnProcessing bool

	// Processing
	CherryTimeoutSeconds int // max time to process one merged PR (incl. git ops)

	// Resolution index (Qdrant)
	QdrantHost           string
	QdrantPort           int
	QdrantAPIKey         string
	QdrantUseTLS         bool
	QdrantCollectionName string
	QdrantDim            uint64
	QdrantScoreThreshold float64

	// Embeddings (OpenAI)
	OpenAIAPIKey         string
	OpenAIEmbeddingModel string

	// Engine
	MinSuccessRate float64
}

func Load() (*Config, error) {
	appIDStr := os.Getenv("GITHUB_APP_ID")
	secret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	pemB64 := os.Getenv("GITHUB_APP_PRIVATE_KEY_PEM_BASE64")
	listenPort := envOr("LISTEN_PORT", ":8080")

	if appIDStr == "" || secret == "" || pemB64 == "" {
		return nil, errors.New("GITHUB_APP_ID, GITHUB_WEBHOOK_SECRET, GITHUB_APP_PRIVATE_KEY_PEM_BASE64 are required")
	}
	var appID int64
	_, err := fmt.Sscan(appIDStr, &appID)
	if err != nil {
		return nil, err
	}

	pem, err := base64.StdEncoding.DecodeString(pemB64)
	if err != nil {
		return nil, err
	}

	// AWS/SQS defaults suitable for PoC
	awsRegion := envOr("AWS_REGION", "eu-north-1")
	queueURL := os.Getenv("SQS_QUEUE_URL")
	if queueURL == "" {
		return nil, errors.New("SQS_QUEUE_URL is required")
	}

	return &Config{
		AppID:         appID,
		WebhookSecret: []byte(secret),
		PrivateKeyPEM: pem,
		ListenPort:    listenPort,
		GitUserName:   envOr("GIT_USER_NAME", "stabilisation-bot"),
		GitUserEmail:  envOr("GIT_USER_EMAIL", "stabilisation-bot@users.noreply.github.com"),

		AWSRegion:             awsRegion,
		SQSQueueURL:           queueURL,
		SQSMaxMessages:        int32(envOrInt("SQS_MAX_MESSAGES", 10)),
		SQSWaitTimeSeconds:    int32(envOrInt("SQS_WAIT_TIME_SECONDS", 10)),
		SQSVisibilityTimeout:  int32(envOrInt("SQS_VISIBILITY_TIMEOUT", 120)),
		SQSDeleteOn4xx:        envOrBool("SQS_DELETE_ON_4XX", true),
		SQSExtendOnProcessing: envOrBool("SQS_EXTEND_ON_PROCESSING", false),

		// Give slow repos enough time; make it easy to override
		CherryTimeoutSeconds: envOrInt("CHERRY_TIMEOUT_SECONDS", 600),

		QdrantHost:           envOr("QDRANT_HOST", "localhost"),
		QdrantPort:           envOrInt("QDRANT_PORT", 6334),
		QdrantAPIKey:         os.Getenv("QDRANT_API_KEY"),
		QdrantUseTLS:         envOrBool("QDRANT_USE_TLS", false),
		QdrantCollectionName: envOr("QDRANT_COLLECTION_NAME", "cherry_pick_resolutions"),
		QdrantDim:            uint64(envOrInt("QDRANT_DIM", 1536)),
		QdrantScoreThreshold: envOrFloat("QDRANT_SCORE_THRESHOLD", 0.85),

		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIEmbeddingModel: envOr("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		MinSuccessRate: envOrFloat("MIN_SUCCESS_RATE", 0.70),
	}, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envOrInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return def
}
