package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-threatguard/internal/logging"
)

// Exporter serves /metrics.
type Exporter struct {
	srv *http.Server
}

func NewExporter(addr string) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Exporter{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

func (e *Exporter) Start() {
	go func() {
		if err := e.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics exporter stopped: %v", err)
		}
	}()
	logging.Info("Metrics exporter listening on %s", e.srv.Addr)
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.srv.Shutdown(ctx)
}
