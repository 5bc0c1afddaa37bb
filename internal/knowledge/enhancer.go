// Package knowledge augments reports with domain context.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
)

// Enhancer amends a rendered report. Implementations must honour ctx.
type Enhancer interface {
	Enhance(ctx context.Context, report, question string) (string, error)
}

// EnhancerFunc adapts a function to Enhancer.
type EnhancerFunc func(ctx context.Context, report, question string) (string, error)

// Enhance calls f.
func (f EnhancerFunc) Enhance(ctx context.Context, report, question string) (string, error) {
	return f(ctx, report, question)
}

// ErrEmptyEnhancement is returned when an enhancer produced no text.
var ErrEmptyEnhancement = errors.New("enhancer returned an empty report")

// SafeEnhance runs e with a deadline. Any error, panic, timeout or empty
// result is logged at warn level and the unmodified report is returned.
func SafeEnhance(ctx context.Context, e Enhancer, timeout time.Duration, logger *observability.Logger, report, question string) string {
	if e == nil {
		return report
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("enhancer panic: %v", r)}
			}
		}()
		text, err := e.Enhance(ctx, report, question)
		done <- outcome{text: text, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = fmt.Errorf("knowledge enhancement: %w", ctx.Err())
	}

	if out.err == nil && out.text == "" {
		out.err = ErrEmptyEnhancement
	}
	if out.err != nil {
		if logger != nil {
			logger.Warn().Err(out.err).Msg("report enhancement skipped")
		}
		return report
	}
	return out.text
}
