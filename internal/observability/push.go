package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the current metric values to a Prometheus Pushgateway, grouped
// by the command that produced them.
func (m *Metrics) Push(ctx context.Context, url, job, command string) error {
	p := push.New(url, job).Grouping("command", command)
	for _, c := range m.collectors() {
		p = p.Collector(c)
	}
	if err := p.AddContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
