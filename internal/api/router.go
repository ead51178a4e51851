// Package api serves the storefront search endpoint over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/letmevibethatforyou/shopsearch"
)

// Paging limits accepted by the search endpoint.
const (
	MaxLimit       = 100
	DefaultTimeout = 5 * time.Second
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Config configures the router.
type Config struct {
	// AllowOrigins lists the storefront origins allowed by CORS. Empty allows all.
	AllowOrigins []string
	// Timeout bounds each backend search. Zero uses DefaultTimeout.
	Timeout time.Duration
	// Logger receives one line per request. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewRouter returns the HTTP handler for GET /health and GET /api/search.
func NewRouter(searcher shopsearch.Searcher, cfg Config) *gin.Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"service": "shopsearch",
		})
	})

	h := &searchHandler{searcher: searcher, timeout: cfg.Timeout, logger: cfg.Logger}
	router.GET("/api/search", h.search)

	return router
}

type searchHandler struct {
	searcher shopsearch.Searcher
	timeout  time.Duration
	logger   *slog.Logger
}

func (h *searchHandler) search(c *gin.Context) {
	query := c.Request.URL.Query()

	filters, err := shopsearch.Decode(query)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Invalid search parameters",
			Error:   err.Error(),
		})
		return
	}

	limit, err := pagingParam(query.Get("limit"), shopsearch.DefaultLimit)
	if err != nil || limit == 0 || limit > MaxLimit {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Invalid search parameters",
			Error:   "limit must be between 1 and " + strconv.Itoa(MaxLimit),
		})
		return
	}
	offset, err := pagingParam(query.Get("offset"), 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Invalid search parameters",
			Error:   "offset must be a non-negative integer",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.searcher.Search(ctx, filters, shopsearch.WithLimit(limit), shopsearch.WithOffset(offset))
	if err != nil {
		status := statusFor(err)
		h.logger.ErrorContext(ctx, "search failed", "query", query.Encode(), "status", status, "error", err)
		c.JSON(status, ErrorResponse{
			Status:  status,
			Message: shopsearch.FetchFailedMessage,
			Error:   errors.UnwrapAll(err).Error(),
		})
		return
	}
	if resp == nil {
		resp = &shopsearch.Response{}
	}

	c.JSON(http.StatusOK, resp)
}

func pagingParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Newf("negative value %d", n)
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shopsearch.ErrInvalidParam), errors.Is(err, shopsearch.ErrInvalidExpression):
		return http.StatusBadRequest
	case errors.Is(err, shopsearch.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, shopsearch.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
