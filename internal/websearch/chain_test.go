package websearch

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	configured bool
	urls       []string
	err        error
	calls      int
}

func (s *stubProvider) Name() string     { return s.name }
func (s *stubProvider) Configured() bool { return s.configured }

func (s *stubProvider) Search(_ context.Context, _ string, _ int) ([]string, error) {
	s.calls++
	return s.urls, s.err
}

func TestChain_FirstSuccessWins(t *testing.T) {
	a := &stubProvider{name: "a", configured: true, urls: []string{"https://a/1", "https://a/2", "https://a/3"}}
	b := &stubProvider{name: "b", configured: true, urls: []string{"https://b/1"}}
	c := NewChain([]Provider{a, b})

	urls, err := c.Search(context.Background(), "  golang  ", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a/1", "https://a/2"}, urls)
	assert.Equal(t, 0, b.calls)
}

func TestChain_FallsThroughErrorsAndEmpty(t *testing.T) {
	m := metrics.New()
	unconfigured := &stubProvider{name: "tavily"}
	failing := &stubProvider{name: "serper", configured: true, err: errors.New("quota exceeded")}
	empty := &stubProvider{name: "other", configured: true}
	last := &stubProvider{name: "duckduckgo", configured: true, urls: []string{"https://d/1"}}
	c := NewChain([]Provider{unconfigured, failing, empty, last}, WithMetrics(m))

	urls, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://d/1"}, urls)
	assert.Equal(t, 0, unconfigured.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, []string{"serper", "other", "duckduckgo"}, c.Providers())

	assert.Equal(t, 1.0, searchCount(t, m.Registry(), "serper", "error"))
	assert.Equal(t, 1.0, searchCount(t, m.Registry(), "other", "empty"))
	assert.Equal(t, 1.0, searchCount(t, m.Registry(), "duckduckgo", "ok"))
}

func TestChain_NoProvider(t *testing.T) {
	c := NewChain([]Provider{&stubProvider{name: "tavily"}})
	_, err := c.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = NewChain(nil).Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestChain_Exhausted(t *testing.T) {
	c := NewChain([]Provider{
		&stubProvider{name: "a", configured: true, err: errors.New("boom")},
		&stubProvider{name: "b", configured: true, err: errors.New("network down")},
	})
	_, err := c.Search(context.Background(), "q", 5)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Contains(t, err.Error(), "b: network down")
}

func TestChain_AllEmpty(t *testing.T) {
	c := NewChain([]Provider{&stubProvider{name: "a", configured: true}})
	urls, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestChain_BlankQuery(t *testing.T) {
	p := &stubProvider{name: "a", configured: true, urls: []string{"https://a"}}
	urls, err := NewChain([]Provider{p}).Search(context.Background(), " \t\n", 5)
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Equal(t, 0, p.calls)

	// Blank queries never fail, even without providers.
	_, err = NewChain(nil).Search(context.Background(), "", 5)
	assert.NoError(t, err)
}

func TestNewDefaultChain(t *testing.T) {
	disabled := false
	c := NewDefaultChain(&config.SearchConfig{
		TavilyURL: "https://tavily.test", SerperURL: "https://serper.test", SerperAPIKey: "k",
		DuckDuckGoURL: "https://ddg.test", DuckDuckGoEnabled: &disabled,
	}, nil, "ua")
	assert.Equal(t, []string{"serper"}, c.Providers())

	c = NewDefaultChain(&config.SearchConfig{
		TavilyURL: "https://tavily.test", TavilyAPIKey: "t", DuckDuckGoURL: "https://ddg.test",
	}, nil, "ua")
	assert.Equal(t, []string{"tavily", "duckduckgo"}, c.Providers())
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "", "b", "a", "c", "b"}))
	assert.Empty(t, dedupe(nil))
}

func searchCount(t *testing.T, reg *prometheus.Registry, provider, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "webrag_search_attempts_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["provider"] == provider && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
