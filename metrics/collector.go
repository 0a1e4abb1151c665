// Package metrics exposes the protocol engine's counters and gauges as a
// Prometheus collector: packets routed per command, checksum failures, VM
// executions and aborts by reason, and the VM's current output cursor.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vinagres/sramchain/forth"
	"github.com/vinagres/sramchain/wire"
)

const commandCount = int(wire.ERR) + 1
const abortReasonCount = int(forth.AbortExternal) + 1

// Collector implements prometheus.Collector by hand, following the same
// Describe/Collect shape as a custom TCP-info exporter: a fixed table of
// descriptions paired with live values pulled at scrape time.
type Collector struct {
	packetsDesc     *prometheus.Desc
	checksumFailDesc *prometheus.Desc
	vmExecDesc      *prometheus.Desc
	vmAbortDesc     *prometheus.Desc
	writePosDesc    *prometheus.Desc

	packetsByCommand [commandCount]uint64
	checksumFailures uint64
	vmExecs          uint64
	vmAbortsByReason [abortReasonCount]uint64

	writePos func() uint64
}

// NewCollector builds a Collector. writePos is polled at scrape time to
// report the VM's current result-buffer cursor as a gauge.
func NewCollector(writePos func() uint64) *Collector {
	return &Collector{
		packetsDesc: prometheus.NewDesc(
			"sramchain_packets_total",
			"Packets routed by this node, labeled by command.",
			[]string{"command"}, nil,
		),
		checksumFailDesc: prometheus.NewDesc(
			"sramchain_checksum_failures_total",
			"Packets rejected for a checksum mismatch.",
			nil, nil,
		),
		vmExecDesc: prometheus.NewDesc(
			"sramchain_vm_execs_total",
			"EXEC commands evaluated by the embedded interpreter.",
			nil, nil,
		),
		vmAbortDesc: prometheus.NewDesc(
			"sramchain_vm_aborts_total",
			"Interpreter evaluations that ended in an abort, labeled by reason.",
			[]string{"reason"}, nil,
		),
		writePosDesc: prometheus.NewDesc(
			"sramchain_vm_write_pos",
			"Current cursor into the interpreter's result buffer.",
			nil, nil,
		),
		writePos: writePos,
	}
}

func (c *Collector) IncPacket(cmd wire.Command) {
	if int(cmd) < 0 || int(cmd) >= commandCount {
		return
	}
	atomic.AddUint64(&c.packetsByCommand[cmd], 1)
}

func (c *Collector) IncChecksumFailure() {
	atomic.AddUint64(&c.checksumFailures, 1)
}

func (c *Collector) IncVMExec() {
	atomic.AddUint64(&c.vmExecs, 1)
}

func (c *Collector) IncVMAbort(reason forth.AbortReason) {
	if int(reason) < 0 || int(reason) >= abortReasonCount {
		return
	}
	atomic.AddUint64(&c.vmAbortsByReason[reason], 1)
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.packetsDesc
	descs <- c.checksumFailDesc
	descs <- c.vmExecDesc
	descs <- c.vmAbortDesc
	descs <- c.writePosDesc
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	for cmd := 0; cmd < commandCount; cmd++ {
		n := atomic.LoadUint64(&c.packetsByCommand[cmd])
		metrics <- prometheus.MustNewConstMetric(c.packetsDesc, prometheus.CounterValue, float64(n), wire.Command(cmd).String())
	}

	metrics <- prometheus.MustNewConstMetric(c.checksumFailDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.checksumFailures)))
	metrics <- prometheus.MustNewConstMetric(c.vmExecDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.vmExecs)))

	for reason := 0; reason < abortReasonCount; reason++ {
		n := atomic.LoadUint64(&c.vmAbortsByReason[reason])
		metrics <- prometheus.MustNewConstMetric(c.vmAbortDesc, prometheus.CounterValue, float64(n), forth.AbortReason(reason).String())
	}

	if c.writePos != nil {
		metrics <- prometheus.MustNewConstMetric(c.writePosDesc, prometheus.GaugeValue, float64(c.writePos()))
	}
}
