// Package metrics 将状态机分发结果导出为 Prometheus 指标
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

const Subsystem = "fsm"

// Observer 实现 statemachine.Observer，按状态机名称分组计数
type Observer struct {
	Transitions    *prometheus.CounterVec
	Fallbacks      *prometheus.CounterVec
	IgnoredSignals *prometheus.CounterVec
	ActionFailures *prometheus.CounterVec
	CurrentState   *prometheus.GaugeVec
}

var _ statemachine.Observer = (*Observer)(nil)

// NewObserver 创建并注册指标，reg 为空时使用默认注册表
func NewObserver(reg prometheus.Registerer, namespace string) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "transitions_total",
			Help:      "The number of committed state transitions.",
		}, []string{"machine", "from", "signal", "to"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "fallbacks_total",
			Help:      "The number of undefined transitions routed to the fatal error state.",
		}, []string{"machine", "from", "signal"}),
		IgnoredSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "ignored_signals_total",
			Help:      "The number of signals absorbed by an error state.",
		}, []string{"machine", "state"}),
		ActionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "action_failures_total",
			Help:      "The number of transition actions that returned an error.",
		}, []string{"machine", "from", "signal"}),
		CurrentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: Subsystem,
			Name:      "current_state",
			Help:      "1 for the state a machine is currently in, 0 for states it has left.",
		}, []string{"machine", "state"}),
	}

	for _, c := range []prometheus.Collector{o.Transitions, o.Fallbacks, o.IgnoredSignals, o.ActionFailures, o.CurrentState} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register fsm metrics failed: %w", err)
		}
	}
	return o, nil
}

// Observe 记录一次分发
func (o *Observer) Observe(ev statemachine.Event) {
	from, signal, to := label(ev.From), label(ev.Signal), label(ev.To)

	switch ev.Kind {
	case statemachine.EventTransition:
		o.Transitions.WithLabelValues(ev.Machine, from, signal, to).Inc()
		o.move(ev.Machine, from, to)
	case statemachine.EventFallback:
		o.Fallbacks.WithLabelValues(ev.Machine, from, signal).Inc()
		o.move(ev.Machine, from, to)
	case statemachine.EventIgnored:
		o.IgnoredSignals.WithLabelValues(ev.Machine, from).Inc()
	case statemachine.EventActionFailed:
		o.ActionFailures.WithLabelValues(ev.Machine, from, signal).Inc()
	case statemachine.EventReset:
		o.move(ev.Machine, from, to)
	}
}

func (o *Observer) move(machine, from, to string) {
	if from != to {
		o.CurrentState.WithLabelValues(machine, from).Set(0)
	}
	o.CurrentState.WithLabelValues(machine, to).Set(1)
}

// WriteText 以文本格式输出注册表中的全部指标
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func label(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
