package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Flow-related Prometheus metrics. Standalone package so both drivers and
// HTTP middlewares can record without import cycles.

var (
	FlowsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authbroker_flows_started_total",
		Help: "Authorize redirects issued, by platform and intent",
	}, []string{"platform", "intent"})

	FlowsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authbroker_flows_completed_total",
		Help: "Flows that ended with a session or link, by platform and intent",
	}, []string{"platform", "intent"})

	FlowErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authbroker_flow_errors_total",
		Help: "Flows that ended with an error redirect, by platform and client code",
	}, []string{"platform", "code"})

	FlowRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authbroker_flow_rejects_total",
		Help: "Callbacks rejected as CSRF/replay/stale, by platform",
	}, []string{"platform"})
)

// RegisterFlows registers the flow metrics on the given registry (or the
// default if nil). Already-registered collectors are tolerated so tests
// can wire things repeatedly.
func RegisterFlows(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{FlowsStarted, FlowsCompleted, FlowErrors, FlowRejects} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
