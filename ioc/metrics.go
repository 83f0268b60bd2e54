package ioc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/KNICEX/watch-agent/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitMetrics metrics.addr 非空时暴露 /metrics, ctx 取消后关闭
func InitMetrics(ctx context.Context, cfg MetricsConfig) *metrics.Metrics {
	m := metrics.New(prometheus.DefaultRegisterer)

	addr := cfg.Addr
	if addr == "" {
		return m
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutCtx)
	}()
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	return m
}
