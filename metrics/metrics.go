// Package metrics exports Prometheus metrics for state trees.
//
// Commit and edit counters are collected by middleware registered on a root
// node; node events are counted by an observability.Observer.
//
//	m := metrics.New(prometheus.DefaultRegisterer, "app")
//	root, _ := state.NewFromConfig(initial, cfg, m.Middleware())
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tailored-agentic-units/substate/observability"
	"github.com/tailored-agentic-units/substate/state"
)

const subsystem = "state"

// Metrics holds the collectors for every node it is bound to. Node-scoped
// series are labelled with the node's tag, or its ID when untagged.
type Metrics struct {
	// CommitsTotal counts commits broadcast by a node.
	// Labels: node
	CommitsTotal *prometheus.CounterVec

	// EditsTotal counts forward edits by operation.
	// Labels: node, op (add, replace, remove)
	EditsTotal *prometheus.CounterVec

	// EventsTotal counts node events seen by Observer.
	// Labels: type, level
	EventsTotal *prometheus.CounterVec

	reg       prometheus.Registerer
	namespace string
}

// New creates the collectors and registers them with reg. A nil reg leaves
// everything unregistered.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CommitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commits_total",
				Help:      "Total commits broadcast by node",
			},
			[]string{"node"},
		),
		EditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "edits_total",
				Help:      "Total forward edits committed by node and operation",
			},
			[]string{"node", "op"},
		),
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_total",
				Help:      "Total node events by type and level",
			},
			[]string{"type", "level"},
		),
		reg:       reg,
		namespace: namespace,
	}
}

// Middleware returns a factory that counts the commits and edits of the node
// it is registered on and exposes the node's subscriber count as a gauge.
//
// Nodes sharing a label share series. The first node registered under a
// label owns its subscriber gauge.
func (m *Metrics) Middleware() state.MiddlewareFactory {
	return func(n *state.Node) state.Middleware {
		label := nodeLabel(n)
		m.registerSubscribers(n, label)

		commits := m.CommitsTotal.WithLabelValues(label)
		return func(change state.Change, _ any) {
			commits.Inc()
			for _, e := range change.Edits {
				m.EditsTotal.WithLabelValues(label, string(e.Op)).Inc()
			}
		}
	}
}

func (m *Metrics) registerSubscribers(n *state.Node, label string) {
	if m.reg == nil {
		return
	}

	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   subsystem,
			Name:        "subscribers",
			Help:        "Subscribers registered on the node",
			ConstLabels: prometheus.Labels{"node": label},
		},
		func() float64 { return float64(n.SubscriberCount()) },
	)

	if err := m.reg.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
	}
}

// Observer returns an observer that counts every event it receives.
func (m *Metrics) Observer() observability.Observer {
	return observability.ObserverFunc(func(_ context.Context, event observability.Event) {
		m.EventsTotal.WithLabelValues(string(event.Type), event.Level.String()).Inc()
	})
}

func nodeLabel(n *state.Node) string {
	if tag := n.Tag(); tag != "" {
		return tag
	}
	return n.ID()
}
