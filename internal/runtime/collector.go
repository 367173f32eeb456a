package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/registry"
	"golang.org/x/sync/errgroup"
)

// OpinionObserver receives each opinion as soon as it is recorded.
// index is the expert's position in registration order.
// Calls are serialized and happen on the goroutine that called Collect.
type OpinionObserver func(index int, result domain.OpinionResult)

// Collector fans a question out to every expert of a registry view.
type Collector struct {
	invoker ports.Invoker
	logger  *slog.Logger
	timeout time.Duration
	limit   int
}

// NewCollector creates a collector. A zero timeout means calls are bounded
// only by ctx; a limit <= 0 launches every expert at once.
func NewCollector(invoker ports.Invoker, logger *slog.Logger, timeout time.Duration, limit int) *Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Collector{invoker: invoker, logger: logger, timeout: timeout, limit: limit}
}

// Collect asks every expert in view the question concurrently and returns one
// result per expert in registration order, whatever order the calls finish in.
// A failing expert yields an error-marked result; it never fails the batch.
// Collect returns domain.ErrEmptyPanel for an empty view and ctx.Err() when
// ctx is done before every expert has answered.
func (c *Collector) Collect(ctx context.Context, view *registry.View, question string, cfg domain.ModelConfig, observe OpinionObserver) ([]domain.OpinionResult, error) {
	if view == nil || view.Len() == 0 {
		return nil, domain.ErrEmptyPanel
	}
	experts := view.List()

	results := make([]domain.OpinionResult, len(experts))
	completed := make(chan int, len(experts))

	g, gctx := errgroup.WithContext(ctx)
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}

	// With a limit, Go blocks until a slot frees, so launching must not
	// hold up delivery to the observer.
	go func() {
		for i, e := range experts {
			if gctx.Err() != nil {
				return
			}
			g.Go(func() error {
				// Queued behind the limit while ctx was cancelled.
				if err := gctx.Err(); err != nil {
					results[i] = domain.OpinionResult{ExpertID: e.ID, Err: classify(err)}
					completed <- i
					return nil
				}
				results[i] = c.invoke(gctx, e, question, cfg)
				completed <- i
				return nil
			})
		}
	}()

	for range experts {
		select {
		case i := <-completed:
			if observe != nil {
				observe(i, results[i])
			}
		case <-ctx.Done():
			c.logger.Debug("collection abandoned", "err", ctx.Err())
			return nil, ctx.Err()
		}
	}
	_ = g.Wait()

	return results, nil
}

func (c *Collector) invoke(ctx context.Context, e domain.Expert, question string, cfg domain.ModelConfig) (res domain.OpinionResult) {
	start := time.Now()
	res.ExpertID = e.ID

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res.Text = ""
			res.Err = &domain.OpinionError{Kind: domain.OpinionInvoker, Message: fmt.Sprintf("panic: %v", r)}
		}
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			c.logger.Warn("expert failed", "expert_id", e.ID, "kind", res.Err.Kind, "err", res.Err.Message, "elapsed", res.Elapsed)
		} else {
			c.logger.Debug("expert answered", "expert_id", e.ID, "elapsed", res.Elapsed)
		}
	}()

	text, err := c.invoker.Invoke(ctx, ports.InvokeRequest{
		Stage:    domain.StageCollection,
		ExpertID: e.ID,
		Persona:  e.Description,
		Question: question,
		Model:    cfg,
	})
	if err != nil {
		res.Err = classify(err)
		return res
	}
	res.Text = text
	return res
}

type timeoutError interface {
	Timeout() bool
}

func classify(err error) *domain.OpinionError {
	kind := domain.OpinionInvoker
	var te timeoutError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.OpinionTimeout
	case errors.As(err, &te) && te.Timeout():
		kind = domain.OpinionTimeout
	case errors.Is(err, context.Canceled):
		kind = domain.OpinionCanceled
	}
	return &domain.OpinionError{Kind: kind, Message: err.Error()}
}
