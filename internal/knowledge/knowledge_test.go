package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
)

func TestGlossary_Lookup(t *testing.T) {
	g := NewGlossary()

	tests := []struct {
		question string
		want     []string
	}{
		{"what is CTR?", []string{"CTR"}},
		{"что такое РКО и CPC", []string{"CPC", "РКО"}},
		{"refresh creatives", nil},
		{"cost per click by utm source", []string{"CPC", "UTM"}},
		{"воронка конверсии", []string{"CR", "Funnel"}},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			var got []string
			for _, e := range g.Lookup(tt.question) {
				got = append(got, e.Term)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlossary_Enhance(t *testing.T) {
	g := NewGlossary()

	out, err := g.Enhance(context.Background(), "# Report\n\nbody\n", "what is CTR")
	require.NoError(t, err)
	assert.Equal(t, "# Report\n\nbody\n\n## Context\n\n- **CTR:** Click-through rate: clicks divided by impressions, in percent.\n", out)

	out, err = g.Enhance(context.Background(), "# Report\n", "show campaigns")
	require.NoError(t, err)
	assert.Equal(t, "# Report\n", out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Enhance(ctx, "# Report\n", "what is CTR")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeEnhance(t *testing.T) {
	logger := observability.NopLogger()
	ctx := context.Background()

	release := make(chan struct{})
	defer close(release)

	tests := []struct {
		name     string
		enhancer Enhancer
		timeout  time.Duration
		want     string
	}{
		{name: "nil enhancer", timeout: time.Second, want: "r"},
		{
			name: "success",
			enhancer: EnhancerFunc(func(_ context.Context, report, _ string) (string, error) {
				return report + "+", nil
			}),
			timeout: time.Second,
			want:    "r+",
		},
		{
			name: "error keeps report",
			enhancer: EnhancerFunc(func(context.Context, string, string) (string, error) {
				return "", errors.New("boom")
			}),
			timeout: time.Second,
			want:    "r",
		},
		{
			name:     "empty keeps report",
			enhancer: EnhancerFunc(func(context.Context, string, string) (string, error) { return "", nil }),
			timeout:  time.Second,
			want:     "r",
		},
		{
			name: "panic keeps report",
			enhancer: EnhancerFunc(func(context.Context, string, string) (string, error) {
				panic("enhancer exploded")
			}),
			timeout: 100 * time.Millisecond,
			want:    "r",
		},
		{
			name: "panic without deadline keeps report",
			enhancer: EnhancerFunc(func(context.Context, string, string) (string, error) {
				panic(errors.New("nil map"))
			}),
			want: "r",
		},
		{
			name: "timeout keeps report",
			enhancer: EnhancerFunc(func(context.Context, string, string) (string, error) {
				<-release
				return "late", nil
			}),
			timeout: 20 * time.Millisecond,
			want:    "r",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			assert.Equal(t, tt.want, SafeEnhance(ctx, tt.enhancer, tt.timeout, logger, "r", "q"))
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}
