package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/shopsearch"
	"github.com/letmevibethatforyou/shopsearch/filtersync"
	"github.com/letmevibethatforyou/shopsearch/httpsearch"
	"github.com/urfave/cli/v2"
)

const (
	defaultEndpoint = "http://localhost:8080" + httpsearch.DefaultPath
	defaultTimeout  = 10 * time.Second
)

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}

	app := &cli.App{
		Name:      "shopsearch",
		Usage:     "Open a search page from an address bar query, apply filter changes and print the settled results",
		ArgsUsage: "[address-bar query]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Usage:   "Search endpoint URL",
				EnvVars: []string{"SHOPSEARCH_ENDPOINT"},
				Value:   defaultEndpoint,
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Page URL or address bar query to bootstrap from, e.g. '?category=Electronics&ratings=4'; the first argument is a fallback",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Clear every filter and the query before applying changes (sort is kept)",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Replace the search text",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Select a category",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Select a tag; repeatable",
			},
			&cli.Float64Flag{
				Name:  "min-price",
				Usage: "Lower price bound",
			},
			&cli.Float64Flag{
				Name:  "max-price",
				Usage: "Upper price bound",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort order: relevance, price-asc, price-desc, rating or newest",
			},
			&cli.IntSliceFlag{
				Name:  "rating",
				Usage: "Select a star rating bucket; repeatable",
			},
			&cli.BoolFlag{
				Name:  "featured",
				Usage: "Only featured items",
			},
			&cli.BoolFlag{
				Name:  "new-arrivals",
				Usage: "Only items added in the last 30 days",
			},
			&cli.BoolFlag{
				Name:  "best-sellers",
				Usage: "Only best sellers",
			},
			&cli.DurationFlag{
				Name:    "delay",
				Usage:   "Debounce quiet period before a search is sent",
				EnvVars: []string{"SHOPSEARCH_DELAY"},
				Value:   filtersync.DefaultDelay,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for results to settle",
				Value: defaultTimeout,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log every address bar replacement and state change",
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// changes holds the filter edits requested on the command line.
type changes struct {
	clear       bool
	query       *string
	category    string
	tags        []string
	minPrice    *float64
	maxPrice    *float64
	sortBy      string
	ratings     []int
	featured    bool
	newArrivals bool
	bestSellers bool
}

func changesFromFlags(c *cli.Context) changes {
	ch := changes{
		clear:       c.Bool("clear"),
		category:    strings.TrimSpace(c.String("category")),
		tags:        c.StringSlice("tag"),
		sortBy:      strings.TrimSpace(c.String("sort")),
		ratings:     c.IntSlice("rating"),
		featured:    c.Bool("featured"),
		newArrivals: c.Bool("new-arrivals"),
		bestSellers: c.Bool("best-sellers"),
	}
	if c.IsSet("query") {
		q := c.String("query")
		ch.query = &q
	}
	if c.IsSet("min-price") {
		v := c.Float64("min-price")
		ch.minPrice = &v
	}
	if c.IsSet("max-price") {
		v := c.Float64("max-price")
		ch.maxPrice = &v
	}
	return ch
}

// apply issues one update per change, the way a shopper clicks through the
// filter panel.
func (ch changes) apply(s *filtersync.Sync) error {
	if ch.clear {
		s.Update(shopsearch.ClearAll())
	}
	if ch.query != nil {
		s.Update(shopsearch.QueryPatch(*ch.query))
	}
	if ch.category != "" {
		s.Update(shopsearch.Patch{Categories: shopsearch.Set([]string{ch.category})})
	}
	for _, tag := range ch.tags {
		s.Update(s.Filters().ToggleTag(strings.TrimSpace(tag), true))
	}
	if ch.minPrice != nil {
		s.Update(s.Filters().SetMinPrice(ch.minPrice))
	}
	if ch.maxPrice != nil {
		s.Update(s.Filters().SetMaxPrice(ch.maxPrice))
	}
	if ch.sortBy != "" {
		sortBy := shopsearch.SortBy(ch.sortBy)
		if !sortBy.Valid() {
			return errors.Wrapf(shopsearch.ErrInvalidParam, "unknown sort order %q", ch.sortBy)
		}
		s.Update(shopsearch.SortPatch(sortBy))
	}
	for _, r := range ch.ratings {
		if r < 1 || r > 5 {
			return errors.Wrapf(shopsearch.ErrInvalidParam, "rating %d is outside 1-5", r)
		}
		s.Update(s.Filters().ToggleRating(r, true))
	}
	picks := []struct {
		pick shopsearch.TopPick
		on   bool
	}{
		{shopsearch.PickFeatured, ch.featured},
		{shopsearch.PickNewArrivals, ch.newArrivals},
		{shopsearch.PickBestSellers, ch.bestSellers},
	}
	for _, p := range picks {
		if p.on {
			s.Update(shopsearch.SetTopPick(p.pick, true))
		}
	}
	return nil
}

func runAction(c *cli.Context) error {
	ctx := c.Context

	rawQuery := c.String("url")
	if rawQuery == "" && c.NArg() > 0 {
		rawQuery = c.Args().First()
	}
	rawQuery = queryOf(rawQuery)

	timeout := c.Duration("timeout")
	if timeout <= 0 {
		slog.WarnContext(ctx, "timeout must be positive; using default", "timeout", timeout, "default", defaultTimeout)
		timeout = defaultTimeout
	}

	client, err := httpsearch.NewClient(c.String("endpoint"))
	if err != nil {
		return err
	}

	verbose := c.Bool("verbose")
	var address addressBar
	changed := make(chan struct{}, 1)

	s := filtersync.New(client, &address,
		filtersync.WithDelay(c.Duration("delay")),
		filtersync.WithLogger(slog.Default()),
		filtersync.WithOnChange(func(v filtersync.View) {
			if verbose {
				slog.InfoContext(ctx, "state changed", "status", v.Status().String(), "request_id", v.RequestID)
			}
			select {
			case changed <- struct{}{}:
			default:
			}
		}),
	)
	defer s.Close()

	if err := s.Bootstrap(rawQuery); err != nil {
		slog.WarnContext(ctx, "ignored invalid address bar parameters", "error", err)
	}
	if err := changesFromFlags(c).apply(s); err != nil {
		return err
	}

	final := shopsearch.EncodeString(s.Filters())
	view, err := waitSettled(ctx, changed, s.View, final, timeout)
	if err != nil {
		return err
	}

	if verbose {
		for _, q := range address.History() {
			slog.InfoContext(ctx, "address bar replaced", "query", q)
		}
	}

	return printView(os.Stdout, view, address.Current())
}

// settled reports whether v shows the results for the encoded filters final.
func settled(v filtersync.View, final string) bool {
	return !v.Loading && v.RequestID > 0 && shopsearch.EncodeString(v.Filters) == final
}

// waitSettled polls current each time changed fires until the view has
// settled on final.
func waitSettled(ctx context.Context, changed <-chan struct{}, current func() filtersync.View, final string, timeout time.Duration) (filtersync.View, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		if v := current(); settled(v, final) {
			return v, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return filtersync.View{}, errors.WithSecondaryError(shopsearch.ErrTimeout, ctx.Err())
		}
	}
}

// printView writes the settled view as JSON. An error view is printed and
// then returned as a failure.
func printView(w io.Writer, v filtersync.View, addressQuery string) error {
	summary := v.Filters.Summary()
	payload := struct {
		AddressBar  string                   `json:"addressBar"`
		Status      string                   `json:"status"`
		Message     string                   `json:"message,omitempty"`
		Filters     shopsearch.FilterSummary `json:"filters"`
		Total       int64                    `json:"total"`
		Items       []shopsearch.Item        `json:"items"`
		Suggestions []string                 `json:"suggestions"`
		Facets      *shopsearch.Facets       `json:"facets,omitempty"`
	}{
		AddressBar:  addressQuery,
		Status:      v.Status().String(),
		Filters:     summary,
		Items:       v.Items(),
		Suggestions: v.Suggestions,
		Facets:      v.Facets(),
	}
	switch v.Status() {
	case filtersync.StatusError:
		payload.Message = v.Error
	case filtersync.StatusEmpty:
		payload.Message = filtersync.EmptyMessage
	}
	if v.Response != nil {
		payload.Total = v.Response.Total
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}

	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return err
	}
	if v.Status() == filtersync.StatusError {
		return errors.Mark(errors.New(v.Error), shopsearch.ErrFetchFailed)
	}
	return nil
}
