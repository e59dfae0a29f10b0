package sched

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for process outcomes.
const (
	outcomeFinished = "finished"
	outcomeFaulted  = "faulted"
)

var (
	dispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coresim_dispatches_total",
			Help: "Total number of dispatch quanta started by workers.",
		},
		[]string{"policy"},
	)

	processesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coresim_processes_total",
			Help: "Total number of processes retired, by outcome.",
		},
		[]string{"outcome"},
	)

	generatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coresim_generated_processes_total",
			Help: "Total number of processes synthesized by the batch generator.",
		},
	)

	activeCores = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coresim_active_cores",
			Help: "Number of cores currently executing a dispatch quantum.",
		},
	)

	readyQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coresim_ready_queue_depth",
			Help: "Number of process handles waiting in the ready queue.",
		},
	)

	cpuTicks = prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "coresim_cpu_ticks_total",
			Help: "Current value of the shared CPU tick counter.",
		},
		func() float64 { return 0 }, // replaced by BindTickMetric
	)
)

func init() {
	prometheus.MustRegister(dispatchesTotal)
	prometheus.MustRegister(processesTotal)
	prometheus.MustRegister(generatedTotal)
	prometheus.MustRegister(activeCores)
	prometheus.MustRegister(readyQueueDepth)
	prometheus.MustRegister(cpuTicks)

	// Pre-initialize label combinations so they appear in /metrics with
	// value 0 from startup.
	for _, p := range []string{"fcfs", "rr"} {
		dispatchesTotal.WithLabelValues(p)
	}
	processesTotal.WithLabelValues(outcomeFinished)
	processesTotal.WithLabelValues(outcomeFaulted)
}

// BindTickMetric exposes the runtime's tick counter. Called once by the
// daemon; replaces the placeholder registered at init.
func BindTickMetric(rt *Runtime) {
	prometheus.Unregister(cpuTicks)
	cpuTicks = prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "coresim_cpu_ticks_total",
			Help: "Current value of the shared CPU tick counter.",
		},
		func() float64 { return float64(rt.Now()) },
	)
	prometheus.MustRegister(cpuTicks)
}
