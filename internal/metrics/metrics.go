// Package metrics provides Prometheus metrics for the pattern scheduler and
// the LED hardware path.
package metrics

import (
	"maps"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledsched"

var (
	patternsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "patterns_scheduled_total",
		Help:      "Patterns accepted into the pattern queue",
	})

	patternsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "patterns_rejected_total",
		Help:      "Patterns rejected because the pattern queue was full",
	})

	patternsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "patterns_finished_total",
		Help:      "Patterns released by the scheduler, by reason",
	}, []string{"reason"})

	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "commands_total",
		Help:      "Control commands sent to the scheduler, by result",
	}, []string{"command", "result"})

	repetitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "repetitions_total",
		Help:      "Pattern repetitions executed",
	})

	schedulerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "state",
		Help:      "1 for the current scheduler state, 0 otherwise",
	}, []string{"state"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "queue_depth",
		Help:      "Patterns waiting in the pattern queue",
	})

	hwWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "led",
		Name:      "writes_total",
		Help:      "Successful writes to the LED strip, by driver",
	}, []string{"driver"})

	hwErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "led",
		Name:      "write_errors_total",
		Help:      "Failed writes to the LED strip, by error kind",
	}, []string{"kind"})

	hwWriteSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "led",
		Name:      "write_duration_seconds",
		Help:      "Time spent transmitting a state to the strip",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
	})

	// Local cache for the JSON metrics endpoint and the SSE exporter.
	cache   = newSnapshot()
	cacheMu sync.RWMutex
)

// Snapshot holds the current value of every scheduler and hardware metric.
type Snapshot struct {
	State             string            `json:"state"`
	QueueDepth        int               `json:"queue_depth"`
	PatternsScheduled uint64            `json:"patterns_scheduled"`
	PatternsRejected  uint64            `json:"patterns_rejected"`
	PatternsFinished  map[string]uint64 `json:"patterns_finished"`
	CommandsRejected  uint64            `json:"commands_rejected"`
	Repetitions       uint64            `json:"repetitions"`
	HardwareWrites    uint64            `json:"hardware_writes"`
	HardwareErrors    map[string]uint64 `json:"hardware_errors"`
}

func newSnapshot() Snapshot {
	return Snapshot{
		PatternsFinished: make(map[string]uint64),
		HardwareErrors:   make(map[string]uint64),
	}
}

func update(fn func(s *Snapshot)) {
	cacheMu.Lock()
	fn(&cache)
	cacheMu.Unlock()
}

// RecordPatternScheduled counts a pattern accepted by the queue.
func RecordPatternScheduled() {
	patternsScheduled.Inc()
	update(func(s *Snapshot) { s.PatternsScheduled++ })
}

// RecordPatternRejected counts a pattern refused because the queue was full.
func RecordPatternRejected() {
	patternsRejected.Inc()
	update(func(s *Snapshot) { s.PatternsRejected++ })
}

// RecordPatternFinished counts a released pattern.
func RecordPatternFinished(reason string) {
	patternsFinished.WithLabelValues(reason).Inc()
	update(func(s *Snapshot) { s.PatternsFinished[reason]++ })
}

// RecordCommand counts a control command. accepted is false when the
// command queue was full.
func RecordCommand(command string, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
		update(func(s *Snapshot) { s.CommandsRejected++ })
	}
	commands.WithLabelValues(command, result).Inc()
}

// RecordRepetition counts one executed pattern repetition.
func RecordRepetition() {
	repetitions.Inc()
	update(func(s *Snapshot) { s.Repetitions++ })
}

// SetSchedulerState marks state as the current scheduler state.
func SetSchedulerState(state string) {
	cacheMu.Lock()
	prev := cache.State
	cache.State = state
	cacheMu.Unlock()

	if prev != "" && prev != state {
		schedulerState.WithLabelValues(prev).Set(0)
	}
	schedulerState.WithLabelValues(state).Set(1)
}

// SetQueueDepth records how many patterns are waiting.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
	update(func(s *Snapshot) { s.QueueDepth = n })
}

// RecordHardwareWrite records a successful transmission.
func RecordHardwareWrite(driver string, took time.Duration) {
	hwWrites.WithLabelValues(driver).Inc()
	hwWriteSeconds.Observe(took.Seconds())
	update(func(s *Snapshot) { s.HardwareWrites++ })
}

// RecordHardwareError records a failed transmission.
func RecordHardwareError(kind string) {
	hwErrors.WithLabelValues(kind).Inc()
	update(func(s *Snapshot) { s.HardwareErrors[kind]++ })
}

// GetSnapshot returns a copy of the cached metric values.
func GetSnapshot() Snapshot {
	cacheMu.RLock()
	defer cacheMu.RUnlock()

	out := cache
	out.PatternsFinished = maps.Clone(cache.PatternsFinished)
	out.HardwareErrors = maps.Clone(cache.HardwareErrors)
	return out
}
