package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the bot's Prometheus metrics. Nil-safe: a nil Recorder
// records nothing, so tests can pass nil everywhere.
type Recorder struct {
	registry *prom.Registry

	donations       *prom.CounterVec
	donationAmount  prom.Counter
	channelCalls    *prom.CounterVec
	persistFailures prom.Counter
	loopCycles      *prom.CounterVec
}

// New constructs and registers the bot metrics on a fresh registry.
func New() *Recorder {
	reg := prom.NewRegistry()
	r := &Recorder{registry: reg}

	r.donations = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "donobot",
		Name:      "donations_total",
		Help:      "Inbound donation callbacks by outcome",
	}, []string{"outcome"})
	r.donationAmount = prom.NewCounter(prom.CounterOpts{
		Namespace: "donobot",
		Name:      "donation_amount_total",
		Help:      "Sum of accepted donation amounts",
	})
	r.channelCalls = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "donobot",
		Name:      "channel_calls_total",
		Help:      "Outbound chat calls by operation and result",
	}, []string{"op", "result"})
	r.persistFailures = prom.NewCounter(prom.CounterOpts{
		Namespace: "donobot",
		Name:      "ledger_persist_failures_total",
		Help:      "Ledger saves that failed after an in-memory append",
	})
	r.loopCycles = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "donobot",
		Name:      "loop_cycles_total",
		Help:      "Background loop cycles by loop and result",
	}, []string{"loop", "result"})

	reg.MustRegister(r.donations, r.donationAmount, r.channelCalls, r.persistFailures, r.loopCycles)
	return r
}

// Registry exposes the underlying registry for the /metrics handler.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Donation(outcome string) {
	if r == nil {
		return
	}
	r.donations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) DonationAmount(v float64) {
	if r == nil {
		return
	}
	r.donationAmount.Add(v)
}

func (r *Recorder) ChannelCall(op string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.channelCalls.WithLabelValues(op, result).Inc()
}

func (r *Recorder) PersistFailure() {
	if r == nil {
		return
	}
	r.persistFailures.Inc()
}

func (r *Recorder) LoopCycle(loop string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.loopCycles.WithLabelValues(loop, result).Inc()
}
