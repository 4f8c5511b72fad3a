package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mixgraph/pkg/observability"
)

// logHooks reports observability events to a logger. Successful events go
// to debug, failures to warn.
type logHooks struct {
	logger *log.Logger
}

func installHooks(l *log.Logger) {
	h := &logHooks{logger: l}
	observability.SetEvalHooks(h)
	observability.SetStoreHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *logHooks) OnFrameStart(_ context.Context, graphClass string, chains int) {
	h.logger.Debug("frame start", "class", graphClass, "chains", chains)
}

func (h *logHooks) OnFrameComplete(_ context.Context, graphClass string, evaluations, errs int, d time.Duration) {
	h.logger.Debug("frame complete", "class", graphClass, "evaluations", evaluations, "errors", errs, "duration", d)
}

func (h *logHooks) OnNodeError(_ context.Context, nodeClass, kind string) {
	h.logger.Warn("node error", "node", nodeClass, "kind", kind)
}

func (h *logHooks) OnStoreGet(_ context.Context, backend string, hit bool, d time.Duration) {
	h.logger.Debug("store get", "backend", backend, "hit", hit, "duration", d)
}

func (h *logHooks) OnStorePut(_ context.Context, backend string, size int, d time.Duration) {
	h.logger.Debug("store put", "backend", backend, "bytes", size, "duration", d)
}

func (h *logHooks) OnStoreDelete(_ context.Context, backend string) {
	h.logger.Debug("store delete", "backend", backend)
}

func (h *logHooks) OnStoreError(_ context.Context, backend, op string, err error) {
	h.logger.Warn("store error", "backend", backend, "op", op, "err", err)
}

// HTTP requests are already logged by the server middleware.
func (h *logHooks) OnRequest(context.Context, string, string) {}

func (h *logHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var (
	_ observability.EvalHooks  = (*logHooks)(nil)
	_ observability.StoreHooks = (*logHooks)(nil)
	_ observability.HTTPHooks  = (*logHooks)(nil)
)
