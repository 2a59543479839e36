package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/daily-summarizer/internal/apperr"
	"github.com/xaenox/daily-summarizer/internal/models"
	"github.com/xaenox/daily-summarizer/internal/window"
	"github.com/xaenox/daily-summarizer/internal/workflow"
	"go.uber.org/zap"
)

// Runner is implemented by *workflow.Runner.
type Runner interface {
	Handle(ctx context.Context, event []byte) workflow.Response
}

type SummaryReader interface {
	GetSummary(ctx context.Context, day string) (*models.DailySummary, error)
}

type SummaryHandler struct {
	runner    Runner
	summaries SummaryReader
	logger    *zap.Logger
}

func NewSummaryHandler(runner Runner, summaries SummaryReader, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{runner: runner, summaries: summaries, logger: logger}
}

// Create runs the workflow for the day named in the request body. The body
// may be any of the trigger shapes the workflow accepts.
func (h *SummaryHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "unreadable body"})
		return
	}

	resp := h.runner.Handle(c.Request.Context(), body)
	c.Data(resp.StatusCode, "application/json; charset=utf-8", []byte(resp.Body))
}

func (h *SummaryHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	day := c.Param("day")

	if _, err := window.Resolve(day, time.UTC); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperr.Kind(err), "detail": err.Error()})
		return
	}

	summary, err := h.summaries.GetSummary(ctx, day)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			h.logger.Error("Failed to get summary", zap.String("day", day), zap.Error(err))
		}
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Kind(err), "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// NewRouter builds the HTTP surface: summaries, health and metrics.
func NewRouter(h *SummaryHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.POST("/summaries", h.Create)
	v1.GET("/summaries/:day", h.Get)

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request finished",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// Serve runs the router on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
