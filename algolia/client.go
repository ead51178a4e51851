// Package algolia provides a lazy-loading Algolia client and a catalog
// searcher backed by it, with configurable secret management.
package algolia

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/shopsearch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ObjectIDField is the attribute Algolia uses as the record key.
const ObjectIDField = "objectID"

// Secrets holds the Algolia application credentials.
type Secrets struct {
	// AppID is the Algolia application ID.
	AppID string `json:"app_id"`
	// WriteApiKey is the Algolia write API key.
	WriteApiKey string `json:"write_api_key"`
}

// FetchSecrets is a function type that retrieves Algolia credentials.
// It allows for different secret retrieval strategies (static, environment variables, etc.).
type FetchSecrets func() (Secrets, error)

// StaticSecrets returns a FetchSecrets function that provides static credentials.
func StaticSecrets(appID, writeApiKey string) FetchSecrets {
	return func() (Secrets, error) {
		return Secrets{
			AppID:       appID,
			WriteApiKey: writeApiKey,
		}, nil
	}
}

// EnvSecrets reads the credentials from ALGOLIA_APP_ID and ALGOLIA_API_KEY.
func EnvSecrets() FetchSecrets {
	return func() (Secrets, error) {
		appID := os.Getenv("ALGOLIA_APP_ID")
		if appID == "" {
			return Secrets{}, errors.New("ALGOLIA_APP_ID environment variable is not set")
		}

		apiKey := os.Getenv("ALGOLIA_API_KEY")
		if apiKey == "" {
			return Secrets{}, errors.New("ALGOLIA_API_KEY environment variable is not set")
		}

		return Secrets{
			AppID:       appID,
			WriteApiKey: apiKey,
		}, nil
	}
}

// Client wraps the Algolia search client. Credentials are fetched on first use.
type Client struct {
	getClient func() (*search.Client, error)
	tracer    trace.Tracer
}

// NewClient creates a client that resolves its credentials through fetchSecrets
// the first time it is used.
func NewClient(fetchSecrets FetchSecrets) *Client {
	getClient := sync.OnceValues(func() (*search.Client, error) {
		secrets, err := fetchSecrets()
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch secrets")
		}

		if secrets.AppID == "" {
			return nil, errors.New("AppID is empty")
		}

		if secrets.WriteApiKey == "" {
			return nil, errors.New("WriteApiKey is empty")
		}

		return search.NewClient(secrets.AppID, secrets.WriteApiKey), nil
	})

	return &Client{
		getClient: getClient,
		tracer:    otel.Tracer("shopsearch-algolia"),
	}
}

// ItemObject converts an item into an Algolia record keyed by the item ID.
func ItemObject(it shopsearch.Item) map[string]interface{} {
	object := shopsearch.ItemDocument(it)
	object[ObjectIDField] = it.ID
	return object
}

// SaveObject creates or replaces a single record.
func (c *Client) SaveObject(ctx context.Context, indexName string, object map[string]interface{}) error {
	_, span := c.tracer.Start(ctx, "algolia.save_object",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
		),
	)
	defer span.End()

	if id, ok := object[ObjectIDField].(string); ok {
		span.SetAttributes(attribute.String("algolia.object_id", id))
	}

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return errors.WithSecondaryError(shopsearch.ErrBackendUnavailable, err)
	}

	index := client.InitIndex(indexName)

	if _, err := index.SaveObject(object); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to save object to index %s", indexName))
		return errors.Wrapf(err, "failed to save object to Algolia index %s", indexName)
	}

	span.SetStatus(codes.Ok, "object saved successfully")
	return nil
}

// DeleteObject removes a single record.
func (c *Client) DeleteObject(ctx context.Context, indexName string, objectID string) error {
	_, span := c.tracer.Start(ctx, "algolia.delete_object",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.String("algolia.object_id", objectID),
		),
	)
	defer span.End()

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return errors.WithSecondaryError(shopsearch.ErrBackendUnavailable, err)
	}

	index := client.InitIndex(indexName)

	if _, err := index.DeleteObject(objectID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to delete object from index %s", indexName))
		return errors.Wrapf(err, "failed to delete object from Algolia index %s", indexName)
	}

	span.SetStatus(codes.Ok, "object deleted successfully")
	return nil
}

// BatchSaveObjects creates or replaces records in one batch.
func (c *Client) BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error {
	if len(objects) == 0 {
		return nil
	}

	_, span := c.tracer.Start(ctx, "algolia.batch_save_objects",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.object_count", len(objects)),
		),
	)
	defer span.End()

	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return errors.WithSecondaryError(shopsearch.ErrBackendUnavailable, err)
	}

	index := client.InitIndex(indexName)

	if _, err := index.SaveObjects(objects); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to batch save %d objects to index %s", len(objects), indexName))
		return errors.Wrapf(err, "failed to batch save objects to Algolia index %s", indexName)
	}

	span.SetStatus(codes.Ok, fmt.Sprintf("batch saved %d objects successfully", len(objects)))
	return nil
}
