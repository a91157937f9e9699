package language

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/hye-memory/internal/guard"
	"github.com/rcliao/hye-memory/internal/model"
)

func TestSentiment(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		label string
	}{
		{"positive", "I love hiking in the mountains", Positive},
		{"negative", "That movie was terrible and boring", Negative},
		{"negated", "I don't like rainy days", Negative},
		{"neutral", "The bus arrived at noon", Positive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewLocal().Sentiment(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.label, s.Label)
			assert.GreaterOrEqual(t, s.Score, 0.5)
			assert.LessOrEqual(t, s.Score, 1.0)
		})
	}
}

func TestSentimentNeutralScore(t *testing.T) {
	s, err := NewLocal().Sentiment(context.Background(), "The bus arrived at noon")
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Score)

	strong, err := NewLocal().Sentiment(context.Background(), "great great amazing wonderful")
	require.NoError(t, err)
	weak, err := NewLocal().Sentiment(context.Background(), "great")
	require.NoError(t, err)
	assert.Greater(t, strong.Score, weak.Score)
}

func TestKeywordsRanksFrequentTerms(t *testing.T) {
	kw, err := NewLocal().Keywords(context.Background(),
		"Coffee in the morning. Coffee again at noon. More coffee later!", 3)
	require.NoError(t, err)
	require.Len(t, kw, 3)
	assert.Equal(t, "coffee", kw[0])
}

func TestKeywordsSkipsStopWords(t *testing.T) {
	kw, err := NewLocal().Keywords(context.Background(), "I love hiking in the mountains", 0)
	require.NoError(t, err)
	assert.Contains(t, kw, "hiking")
	assert.Contains(t, kw, "mountains")
	assert.Contains(t, kw, "love hiking")
	for _, w := range kw {
		assert.NotContains(t, []string{"i", "in", "the"}, w)
	}
}

func TestKeywordsEmpty(t *testing.T) {
	kw, err := NewLocal().Keywords(context.Background(), "   ", 3)
	require.NoError(t, err)
	assert.Empty(t, kw)

	kw, err = NewLocal().Keywords(context.Background(), "the and of", 3)
	require.NoError(t, err)
	assert.Empty(t, kw)
}

func TestKeywordsDeterministic(t *testing.T) {
	text := "Pizza night with friends. Board games and pizza until late."
	a, _ := NewLocal().Keywords(context.Background(), text, 3)
	b, _ := NewLocal().Keywords(context.Background(), text, 3)
	assert.Equal(t, a, b)
	assert.Equal(t, "pizza", a[0])
}

func TestSplitSegments(t *testing.T) {
	segs := splitSegments("# Trip\nWe walked 3.5 miles. It rained!\n\nWorth it?")
	var texts []string
	for _, s := range segs {
		texts = append(texts, s.text)
	}
	assert.Equal(t, []string{"Trip", "We walked 3.5 miles.", "It rained!", "Worth it?"}, texts)
	assert.Equal(t, 3, segs[3].index)
}

type stubAnalyzer struct {
	err   error
	calls int
}

func (s *stubAnalyzer) Sentiment(ctx context.Context, text string) (model.Sentiment, error) {
	s.calls++
	return model.Sentiment{Label: Positive, Score: 0.9}, s.err
}

func (s *stubAnalyzer) Keywords(ctx context.Context, text string, limit int) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []string{"a", "b"}, nil
}

func TestGuardedAnalyzer(t *testing.T) {
	inner := &stubAnalyzer{}
	g := NewGuarded(inner, guard.New(guard.Config{Name: "lang"}, nil))

	s, err := g.Sentiment(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 0.9, s.Score)

	kw, err := g.Keywords(context.Background(), "x", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, kw)
}

func TestGuardedAnalyzerBreaker(t *testing.T) {
	inner := &stubAnalyzer{err: errors.New("down")}
	g := NewGuarded(inner, guard.New(guard.Config{Name: "lang", MaxFailures: 2, Cooldown: time.Hour}, nil))

	_, err := g.Sentiment(context.Background(), "x")
	require.Error(t, err)
	_, err = g.Keywords(context.Background(), "x", 3)
	require.Error(t, err)

	_, err = g.Keywords(context.Background(), "x", 3)
	assert.ErrorIs(t, err, guard.ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}
