package handler

import (
	"moviestore/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GET /metrics（Prometheus形式）
func RegisterMetrics(e *echo.Echo, rec *metrics.Recorder) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(rec.Registry, promhttp.HandlerOpts{})))
}
