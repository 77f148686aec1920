package server

import (
	"context"

	"vidguard/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
)

var _ transport.Server = (*Worker)(nil)

// Worker runs the filter's background schedules under the application
// lifecycle, alongside the HTTP server.
type Worker struct {
	uc  *biz.FilterUsecase
	log *log.Helper
}

// NewWorker creates the background worker server.
func NewWorker(uc *biz.FilterUsecase, logger log.Logger) *Worker {
	return &Worker{uc: uc, log: log.NewHelper(logger)}
}

// Start primes the filter and launches its schedules.
func (w *Worker) Start(ctx context.Context) error {
	w.log.Info("starting background schedules")
	return w.uc.Start(ctx)
}

// Stop cancels the schedules and waits for them to drain.
func (w *Worker) Stop(ctx context.Context) error {
	w.log.Info("stopping background schedules")
	return w.uc.Stop(ctx)
}
