// Package echo provides an offline, deterministic ports.Invoker.
// It never touches the network, which makes it suitable for demos, examples
// and tests of the outer layers.
package echo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
)

// DefaultReply is what every expert says unless configured otherwise.
const DefaultReply = "from where I stand, that deserves a closer look"

// Invoker answers expert calls with "<persona>: <reply>" and the synthesis
// call with a count of the opinions it was given.
type Invoker struct {
	reply string
	delay time.Duration
}

// Option configures the echo Invoker.
type Option func(*Invoker)

// WithReply sets the reply appended to every persona.
func WithReply(reply string) Option {
	return func(i *Invoker) {
		i.reply = reply
	}
}

// WithDelay makes every call wait d (or until ctx is done) before answering.
func WithDelay(d time.Duration) Option {
	return func(i *Invoker) {
		i.delay = d
	}
}

// New creates an echo invoker.
func New(opts ...Option) *Invoker {
	i := &Invoker{reply: DefaultReply}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke implements ports.Invoker.
func (i *Invoker) Invoke(ctx context.Context, req ports.InvokeRequest) (string, error) {
	if i.delay > 0 {
		timer := time.NewTimer(i.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if req.Stage == domain.StageSynthesis {
		answered := strings.Count(req.Question, " OPINION:\n")
		silent := strings.Count(req.Question, " could not produce an answer: ")
		return fmt.Sprintf("Moderator: %d of %d experts answered (model %s).", answered, answered+silent, req.Model.ModelName), nil
	}
	return fmt.Sprintf("%s: %s", strings.TrimSpace(req.Persona), i.reply), nil
}
