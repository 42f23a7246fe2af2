package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/novinrelay/lead-relay/internal/config"
	"github.com/novinrelay/lead-relay/internal/http/middleware"
	"github.com/novinrelay/lead-relay/internal/metrics"
	"github.com/novinrelay/lead-relay/internal/model"
	"github.com/novinrelay/lead-relay/internal/pipeline"
	"github.com/novinrelay/lead-relay/internal/repository"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, pipe *pipeline.Pipeline, mysqlDB *sqlx.DB, rds *redis.Client) *Server {
	var deliveriesRepo repository.DeliveriesRepository
	if mysqlDB != nil {
		deliveriesRepo = repository.NewDeliveriesRepository(mysqlDB)
	}

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, model.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:src:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	e.POST("/webhook", webhookHandler(pipe), rlMW)
	e.GET("/v1/reports/deliveries", listDeliveriesHandler(deliveriesRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
