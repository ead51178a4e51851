package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/shopsearch/algolia"
	"github.com/letmevibethatforyou/shopsearch/internal/ddb"
	"github.com/urfave/cli/v2"
)

// Indexer is the part of the Algolia client the handler writes through.
type Indexer interface {
	SaveObject(ctx context.Context, indexName string, object map[string]interface{}) error
	DeleteObject(ctx context.Context, indexName string, objectID string) error
}

type Handler struct {
	indexer Indexer
	logger  *slog.Logger
}

func NewHandler(indexer Indexer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		indexer: indexer,
		logger:  logger,
	}
}

// HandleDynamoDBEvent mirrors catalog table changes into the search index.
// Records that cannot be mapped to an item are skipped; index failures abort
// the batch so the stream retries it.
func (h *Handler) HandleDynamoDBEvent(ctx context.Context, e events.DynamoDBEvent) error {
	h.logger.InfoContext(ctx, "Processing DynamoDB stream records", "record_count", len(e.Records))

	for _, record := range e.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "Error processing record", "event_id", record.EventID, "error", err)
			return err
		}
	}

	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	switch events.DynamoDBOperationType(record.EventName) {
	case events.DynamoDBOperationTypeInsert, events.DynamoDBOperationTypeModify:
		if record.Change.NewImage == nil {
			h.logger.WarnContext(ctx, "No new image for insert/modify operation, skipping record")
			return nil
		}

		parsed, err := ddb.UnmarshalRecord(record.Change.NewImage)
		if err != nil {
			h.logger.WarnContext(ctx, "Failed to unmarshal record, skipping", "error", err)
			return nil
		}

		if parsed.ID == "" {
			h.logger.WarnContext(ctx, "Missing ID (pk) in record, skipping record")
			return nil
		}
		if parsed.IndexName == "" {
			h.logger.WarnContext(ctx, "Missing IndexName (sk) in record, skipping record", "id", parsed.ID)
			return nil
		}
		if parsed.Object.ID == "" {
			parsed.Object.ID = parsed.ID
		}

		return h.handleUpsert(ctx, parsed)

	case events.DynamoDBOperationTypeRemove:
		parsed, err := ddb.UnmarshalRecord(record.Change.Keys)
		if err != nil {
			h.logger.WarnContext(ctx, "Failed to unmarshal keys for delete operation, skipping", "error", err)
			return nil
		}

		if parsed.ID == "" || parsed.IndexName == "" {
			h.logger.WarnContext(ctx, "Missing ID or IndexName in delete record, skipping record")
			return nil
		}

		return h.handleDelete(ctx, parsed.IndexName, parsed.ID)

	default:
		h.logger.InfoContext(ctx, "Ignoring event type", "event_type", record.EventName)
		return nil
	}
}

func (h *Handler) handleUpsert(ctx context.Context, record ddb.Record) error {
	object := algolia.ItemObject(record.Object)
	object[algolia.ObjectIDField] = record.ID

	h.logger.InfoContext(ctx, "Saving item to Algolia", "object_id", record.ID, "index", record.IndexName)
	if err := h.indexer.SaveObject(ctx, record.IndexName, object); err != nil {
		return errors.Wrapf(err, "failed to index item %s", record.ID)
	}
	return nil
}

func (h *Handler) handleDelete(ctx context.Context, indexName, objectID string) error {
	h.logger.InfoContext(ctx, "Deleting item from Algolia", "object_id", objectID, "index", indexName)
	if err := h.indexer.DeleteObject(ctx, indexName, objectID); err != nil {
		return errors.Wrapf(err, "failed to remove item %s", objectID)
	}
	return nil
}

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "catalog-sync",
		Usage: "Sync catalog table stream events to Algolia",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name for AWS Secrets Manager (takes precedence over API key/ID flags)",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "algolia-secret-arn",
				Usage:   "ARN of AWS Secrets Manager secret containing Algolia credentials",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
			},
			&cli.StringFlag{
				Name:    "algolia-app-id",
				Usage:   "Algolia application ID",
				EnvVars: []string{"ALGOLIA_APP_ID"},
			},
			&cli.StringFlag{
				Name:    "algolia-api-key",
				Usage:   "Algolia API key",
				EnvVars: []string{"ALGOLIA_API_KEY"},
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	env := c.String("env")
	secretArn := c.String("algolia-secret-arn")
	algoliaAppID := c.String("algolia-app-id")
	algoliaAPIKey := c.String("algolia-api-key")

	slog.InfoContext(ctx, "Starting catalog to Algolia sync", "environment", env)

	var fetchSecrets algolia.FetchSecrets

	switch {
	case env != "" || secretArn != "":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to load AWS config")
		}
		client := secretsmanager.NewFromConfig(cfg)
		if secretArn != "" {
			slog.InfoContext(ctx, "Using AWS Secrets Manager secret ARN for credentials", "secret_arn", secretArn)
			fetchSecrets = algolia.AWSSecretsFromARN(ctx, client, secretArn)
		} else {
			slog.InfoContext(ctx, "Using AWS Secrets Manager for credentials", "environment", env)
			fetchSecrets = algolia.AWSSecrets(ctx, client, env)
		}
	case algoliaAppID != "" && algoliaAPIKey != "":
		slog.InfoContext(ctx, "Using static credentials from flags")
		fetchSecrets = algolia.StaticSecrets(algoliaAppID, algoliaAPIKey)
	default:
		slog.InfoContext(ctx, "Using environment variables for credentials")
		fetchSecrets = algolia.EnvSecrets()
	}

	handler := NewHandler(algolia.NewClient(fetchSecrets), slog.Default())

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") == "" {
		return errors.New("catalog-sync only runs inside the AWS Lambda runtime")
	}
	lambda.Start(handler.HandleDynamoDBEvent)
	return nil
}
