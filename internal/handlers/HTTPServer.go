package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"BNBPredictionBot/internal/services/prediction"
)

type LatestReader interface {
	Latest(ctx context.Context) (*prediction.Result, error)
}

type OracleHealth interface {
	IsOracleHealthy(ctx context.Context) bool
}

type apiResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HTTPServer exposes health, Prometheus metrics and the latest prediction
type HTTPServer struct {
	echo            *echo.Echo
	addr            string
	predictions     LatestReader
	oracle          OracleHealth
	shutdownTimeout time.Duration
	log             zerolog.Logger
}

// NewHTTPServer builds the router. oracle may be nil, in which case /healthz
// does not report on it.
func NewHTTPServer(addr string, predictions LatestReader, oracle OracleHealth, gatherer prometheus.Gatherer, log zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		echo:            echo.New(),
		addr:            addr,
		predictions:     predictions,
		oracle:          oracle,
		shutdownTimeout: 10 * time.Second,
		log:             log.With().Str("component", "http").Logger(),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(s.requestLogging)

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/api/prediction", s.latestPrediction)

	return s
}

func (s *HTTPServer) requestLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.log.Debug().
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}

func (s *HTTPServer) health(c echo.Context) error {
	if s.oracle == nil {
		return c.JSON(http.StatusOK, apiResponse{Status: http.StatusOK, Message: "ok"})
	}

	message, oracle := "ok", "healthy"
	if !s.oracle.IsOracleHealthy(c.Request().Context()) {
		message, oracle = "degraded", "stale"
	}
	return c.JSON(http.StatusOK, apiResponse{
		Status:  http.StatusOK,
		Message: message,
		Data:    map[string]string{"oracle": oracle},
	})
}

func (s *HTTPServer) latestPrediction(c echo.Context) error {
	result, err := s.predictions.Latest(c.Request().Context())
	if errors.Is(err, prediction.ErrNoPrediction) {
		return c.JSON(http.StatusNotFound, apiResponse{Status: http.StatusNotFound, Message: "no recent prediction"})
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read latest prediction")
		return c.JSON(http.StatusInternalServerError, apiResponse{
			Status:  http.StatusInternalServerError,
			Message: http.StatusText(http.StatusInternalServerError),
		})
	}
	return c.JSON(http.StatusOK, apiResponse{Status: http.StatusOK, Message: "ok", Data: result})
}

// ServeHTTP lets tests drive the router without a listener
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves until ctx is done, then shuts down gracefully
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("http server listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return nil
}
