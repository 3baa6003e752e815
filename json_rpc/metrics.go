package json_rpc

import (
	"errors"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

type ClientMetrics struct {
	NbCalls           prometheus.Counter
	NbCallsOk         prometheus.Counter
	NbTransportErrors prometheus.Counter
	NbStatusErrors    prometheus.Counter
	LatencyOkMillis   prometheus.Summary
}

// NewClientMetrics registers the client metrics on reg. node, when set, becomes a const label
// so that clients of several nodes can share one registry.
// Clients built for the same namespace and node share the already registered collectors.
func NewClientMetrics(reg prometheus.Registerer, ns, node string) (ClientMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var m ClientMetrics
	var err error
	if m.NbCalls, err = newCounter(reg, ns, "jsonrpc_nb_calls", node); err != nil {
		return ClientMetrics{}, err
	}
	if m.NbCallsOk, err = newCounter(reg, ns, "jsonrpc_nb_calls_ok", node); err != nil {
		return ClientMetrics{}, err
	}
	if m.NbTransportErrors, err = newCounter(reg, ns, "jsonrpc_nb_transport_errors", node); err != nil {
		return ClientMetrics{}, err
	}
	if m.NbStatusErrors, err = newCounter(reg, ns, "jsonrpc_nb_status_errors", node); err != nil {
		return ClientMetrics{}, err
	}
	if m.LatencyOkMillis, err = newSummary(reg, ns, "jsonrpc_latency_ok_ms", node); err != nil {
		return ClientMetrics{}, err
	}
	return m, nil
}

func (m *ClientMetrics) observe(d time.Duration, err error) {
	m.NbCalls.Inc()

	var statusErr *ProtocolStatusError
	switch {
	case err == nil:
		m.NbCallsOk.Inc()
		m.LatencyOkMillis.Observe(float64(d) / float64(time.Millisecond))
	case errors.As(err, &statusErr):
		m.NbStatusErrors.Inc()
	default:
		m.NbTransportErrors.Inc()
	}
}

func nodeLabels(node string) prometheus.Labels {
	if node == "" {
		return nil
	}
	return prometheus.Labels{"node": node}
}

// register returns the collector already registered under the same descriptor, if any.
func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func newCounter(reg prometheus.Registerer, ns, name, node string) (prometheus.Counter, error) {
	c, err := register(reg, prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   ns,
			Name:        name,
			ConstLabels: nodeLabels(node),
		}))
	if err != nil {
		return nil, err
	}
	counter, ok := c.(prometheus.Counter)
	if !ok {
		return nil, fmt.Errorf("metric %s is already registered as %T", name, c)
	}
	return counter, nil
}

func newSummary(reg prometheus.Registerer, ns, name, node string) (prometheus.Summary, error) {
	c, err := register(reg, prometheus.NewSummary(
		prometheus.SummaryOpts{
			Namespace:   ns,
			Name:        name,
			ConstLabels: nodeLabels(node),
			Objectives:  map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}))
	if err != nil {
		return nil, err
	}
	summary, ok := c.(prometheus.Summary)
	if !ok {
		return nil, fmt.Errorf("metric %s is already registered as %T", name, c)
	}
	return summary, nil
}
