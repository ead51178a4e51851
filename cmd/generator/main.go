package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/shopsearch"
	"github.com/letmevibethatforyou/shopsearch/algolia"
	"github.com/letmevibethatforyou/shopsearch/internal/ddb"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"
)

var (
	catalog = map[string][]string{
		"Electronics": {"Headphones", "Speaker", "Keyboard", "Mouse", "Monitor", "Webcam", "Charger"},
		"Furniture":   {"Desk", "Chair", "Bookshelf", "Lamp", "Sofa", "Side Table", "Wardrobe"},
		"Kitchen":     {"Kettle", "Blender", "Knife Set", "Toaster", "Coffee Grinder", "Skillet"},
		"Outdoors":    {"Tent", "Backpack", "Sleeping Bag", "Lantern", "Camp Stove", "Hammock"},
		"Apparel":     {"Jacket", "Sneakers", "Hoodie", "Rain Coat", "Beanie", "Gloves"},
	}

	adjectives = []string{
		"Wireless", "Compact", "Premium", "Classic", "Ergonomic", "Portable", "Smart", "Vintage",
	}

	tags = []string{
		"wireless", "eco", "office", "travel", "gift", "sale", "waterproof", "handmade", "kids", "premium",
	}
)

func generateRandomItem(now time.Time) shopsearch.Item {
	categories := make([]string, 0, len(catalog))
	for c := range catalog {
		categories = append(categories, c)
	}

	category := categories[rand.IntN(len(categories))]
	nouns := catalog[category]
	title := adjectives[rand.IntN(len(adjectives))] + " " + nouns[rand.IntN(len(nouns))]

	picked := make(map[string]bool)
	itemTags := make([]string, 0, 3)
	for range rand.IntN(3) + 1 {
		t := tags[rand.IntN(len(tags))]
		if !picked[t] {
			picked[t] = true
			itemTags = append(itemTags, t)
		}
	}

	price := math.Round((5+rand.Float64()*495)*100) / 100
	rating := math.Round((1+rand.Float64()*4)*10) / 10
	created := now.Add(-time.Duration(rand.IntN(180*24)) * time.Hour)

	return shopsearch.Item{
		ID:          ksuid.New().String(),
		Title:       title,
		Description: fmt.Sprintf("%s from our %s range.", title, category),
		Category:    category,
		Tags:        itemTags,
		Price:       shopsearch.Float(price),
		Rating:      shopsearch.Float(rating),
		CreatedAt:   created.UTC().Format(time.RFC3339),
		Featured:    shopsearch.Bool(rand.IntN(5) == 0),
		BestSeller:  shopsearch.Bool(rand.IntN(4) == 0),
	}
}

func insertItem(ctx context.Context, client *dynamodb.Client, tableName, indexName string, it shopsearch.Item) error {
	item, err := ddb.MarshalRecord(ddb.NewRecord(indexName, it))
	if err != nil {
		return err
	}

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	})
	if err != nil {
		return errors.Wrap(err, "failed to put item in DynamoDB")
	}

	slog.InfoContext(ctx, "Successfully inserted item",
		"id", it.ID,
		"title", it.Title,
		"category", it.Category,
		"price", *it.Price,
	)

	return nil
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	env := c.String("env")
	tableName := c.String("table-name")
	indexName := c.String("index")
	count := c.Int("count")
	direct := c.Bool("direct")

	slog.InfoContext(ctx, "Starting catalog generator",
		"environment", env,
		"table", tableName,
		"index", indexName,
		"count", count,
		"direct", direct,
	)

	now := time.Now()
	items := make([]shopsearch.Item, 0, count)
	for range count {
		items = append(items, generateRandomItem(now))
	}

	if direct {
		// Skip the table and stream and write straight to the index.
		client := algolia.NewClient(algolia.EnvSecrets())
		objects := make([]map[string]interface{}, 0, len(items))
		for _, it := range items {
			objects = append(objects, algolia.ItemObject(it))
		}
		if err := client.BatchSaveObjects(ctx, indexName, objects); err != nil {
			return errors.Wrap(err, "failed to index generated items")
		}
		slog.InfoContext(ctx, "Successfully indexed all items", "count", len(objects))
		return nil
	}

	if tableName == "" {
		return errors.New("table-name is required unless --direct is set")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load AWS config")
	}

	client := dynamodb.NewFromConfig(cfg)
	for i, it := range items {
		if err := insertItem(ctx, client, tableName, indexName, it); err != nil {
			return errors.Wrapf(err, "failed to insert item %d", i+1)
		}
	}

	slog.InfoContext(ctx, "Successfully generated and inserted all items", "count", count)
	return nil
}

func main() {
	// Configure JSON logging for AWS environments
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "generator",
		Usage: "Generate random catalog items and insert them into DynamoDB",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Aliases:  []string{"e"},
				Usage:    "Environment name",
				EnvVars:  []string{"ENVIRONMENT"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "table-name",
				Aliases: []string{"t"},
				Usage:   "DynamoDB table name",
				EnvVars: []string{"TABLE_NAME"},
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Search index the items belong to (stored as the sort key)",
				EnvVars: []string{"ALGOLIA_INDEX"},
				Value:   "products",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Usage:   "Number of items to generate",
				Value:   1,
			},
			&cli.BoolFlag{
				Name:  "direct",
				Usage: "Batch-save into Algolia using ALGOLIA_APP_ID/ALGOLIA_API_KEY instead of writing to DynamoDB",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
