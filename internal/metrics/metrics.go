package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ChatTurns       prometheus.Counter
	ProviderErrors  *prometheus.CounterVec
	PluginFailures  *prometheus.CounterVec
	SuggestServed   prometheus.Counter
	SuggestCached   prometheus.Counter
	RateLimitedSend prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			ChatTurns: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "carebot",
				Name:      "chat_turns_total",
				Help:      "Total completed chat turns",
			}),
			ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "carebot",
				Name:      "provider_errors_total",
				Help:      "Upstream LLM call failures by kind",
			}, []string{"kind"}),
			PluginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "carebot",
				Name:      "plugin_context_failures_total",
				Help:      "Context provider errors recovered by the plugin manager",
			}, []string{"plugin"}),
			SuggestServed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "carebot",
				Name:      "suggestions_served_total",
				Help:      "Suggestion batches produced by the LLM",
			}),
			SuggestCached: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "carebot",
				Name:      "suggestions_cached_total",
				Help:      "Suggestion requests answered from the cooldown cache",
			}),
			RateLimitedSend: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "carebot",
				Name:      "chat_rate_limited_total",
				Help:      "Chat sends rejected by the hourly rate limit",
			}),
		}
		prometheus.MustRegister(
			global.ChatTurns,
			global.ProviderErrors,
			global.PluginFailures,
			global.SuggestServed,
			global.SuggestCached,
			global.RateLimitedSend,
		)
	})
	return global
}
