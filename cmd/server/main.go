package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/letmevibethatforyou/shopsearch"
	"github.com/letmevibethatforyou/shopsearch/algolia"
	"github.com/letmevibethatforyou/shopsearch/inmemory"
	"github.com/letmevibethatforyou/shopsearch/internal/api"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "server",
		Usage: "Serve the storefront search endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address",
				EnvVars: []string{"ADDR"},
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:    "seed",
				Usage:   "JSON file with an array of items for the in-memory catalog",
				EnvVars: []string{"SEED_FILE"},
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Algolia index name; when set, searches go to Algolia instead of memory",
				EnvVars: []string{"ALGOLIA_INDEX"},
			},
			&cli.StringFlag{
				Name:    "algolia-secret-arn",
				Usage:   "ARN of AWS Secrets Manager secret containing Algolia credentials",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
			},
			&cli.StringSliceFlag{
				Name:    "allow-origin",
				Usage:   "Storefront origin allowed by CORS; repeatable, all origins when unset",
				EnvVars: []string{"ALLOW_ORIGINS"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Timeout for each backend search",
				EnvVars: []string{"SEARCH_TIMEOUT"},
				Value:   api.DefaultTimeout,
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

	searcher, err := newSearcher(ctx, c)
	if err != nil {
		return err
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(searcher, api.Config{
		AllowOrigins: c.StringSlice("allow-origin"),
		Timeout:      c.Duration("timeout"),
		Logger:       slog.Default(),
	})

	srv := &http.Server{
		Addr:              c.String("addr"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting search server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "server failed")
	case sig := <-quit:
		slog.InfoContext(ctx, "Shutting down search server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	slog.InfoContext(ctx, "Search server exited")
	return nil
}

func newSearcher(ctx context.Context, c *cli.Context) (shopsearch.Searcher, error) {
	if indexName := strings.TrimSpace(c.String("index")); indexName != "" {
		var fetchSecrets algolia.FetchSecrets
		if secretArn := strings.TrimSpace(c.String("algolia-secret-arn")); secretArn != "" {
			slog.InfoContext(ctx, "Using AWS Secrets Manager for Algolia credentials", "secret_arn", secretArn)
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to load AWS config")
			}
			fetchSecrets = algolia.AWSSecretsFromARN(ctx, secretsmanager.NewFromConfig(cfg), secretArn)
		} else {
			fetchSecrets = algolia.EnvSecrets()
		}

		slog.InfoContext(ctx, "Serving searches from Algolia", "index", indexName)
		return algolia.NewSearcher(algolia.NewClient(fetchSecrets), indexName), nil
	}

	store := inmemory.New()
	if seed := c.String("seed"); seed != "" {
		f, err := os.Open(seed)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open seed file %s", seed)
		}
		defer f.Close()

		n, err := store.LoadJSON(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load seed file %s", seed)
		}
		slog.InfoContext(ctx, "Loaded in-memory catalog", "seed", seed, "items", n)
	} else {
		slog.WarnContext(ctx, "No seed file or Algolia index given; serving an empty catalog")
	}
	return store, nil
}
