package remoting

import "github.com/prometheus/client_golang/prometheus"

// recordsTransferred counts records moved across a data channel, split
// by direction, the ambient remoting counterpart to the scheduler's
// per-receiver metrics.
var recordsTransferred = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tempopipe",
	Subsystem: "remoting",
	Name:      "records_transferred_total",
	Help:      "Records moved across a remoting data channel.",
}, []string{"direction"})

func init() {
	prometheus.MustRegister(recordsTransferred)
}
