// Package language provides sentiment and keyword analysis of memory text.
package language

import (
	"context"

	"github.com/rcliao/hye-memory/internal/guard"
	"github.com/rcliao/hye-memory/internal/model"
)

// Sentiment labels.
const (
	Positive = "POSITIVE"
	Negative = "NEGATIVE"
)

// Analyzer turns text into a sentiment and ranked keyword candidates.
type Analyzer interface {
	Sentiment(ctx context.Context, text string) (model.Sentiment, error)
	Keywords(ctx context.Context, text string, limit int) ([]string, error)
}

// Local is an offline Analyzer using a word lexicon and frequency statistics.
type Local struct{}

// NewLocal creates a local analyzer.
func NewLocal() *Local { return &Local{} }

func (Local) Sentiment(ctx context.Context, text string) (model.Sentiment, error) {
	if err := ctx.Err(); err != nil {
		return model.Sentiment{}, err
	}
	return scoreSentiment(text), nil
}

func (Local) Keywords(ctx context.Context, text string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return extractKeywords(text, limit), nil
}

// Guarded runs every call of an Analyzer through a guard.
type Guarded struct {
	inner Analyzer
	guard *guard.Guard
}

// NewGuarded wraps a with g.
func NewGuarded(a Analyzer, g *guard.Guard) *Guarded {
	return &Guarded{inner: a, guard: g}
}

func (g *Guarded) Sentiment(ctx context.Context, text string) (model.Sentiment, error) {
	out, err := g.guard.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return g.inner.Sentiment(ctx, text)
	})
	if err != nil {
		return model.Sentiment{}, err
	}
	return out.(model.Sentiment), nil
}

func (g *Guarded) Keywords(ctx context.Context, text string, limit int) ([]string, error) {
	out, err := g.guard.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return g.inner.Keywords(ctx, text, limit)
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}
