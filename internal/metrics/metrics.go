// Package metrics holds the Prometheus collectors of the security sensor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	LifecyclePhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "security_sensor_lifecycle_phase",
		Help: "1 for the current detection lifecycle phase, 0 otherwise",
	}, []string{"phase"})
	DebounceCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "security_sensor_debounce_count",
		Help: "Current number of consecutive positive classifications",
	})
	MQTTConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "security_sensor_mqtt_connected",
		Help: "1 when the MQTT client is connected",
	})
	PublishQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "security_sensor_publish_queue_depth",
		Help: "Messages waiting in the outbound publish queue",
	})
)

// Counters
var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_sensor_cycles_total",
		Help: "Scan loop cycles by outcome",
	}, []string{"outcome"})
	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_sensor_classifications_total",
		Help: "Classifier runs by result",
	}, []string{"result"})
	AlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "security_sensor_alerts_total",
		Help: "Streams started after a debounced detection",
	})
	StreamFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "security_sensor_stream_frames_total",
		Help: "Encoded bitmaps queued for publishing",
	})
	EncodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "security_sensor_encode_errors_total",
		Help: "Bitmap encode failures",
	})
	AcknowledgmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_sensor_acknowledgments_total",
		Help: "Acknowledgments by transport",
	}, []string{"transport"})
	CameraReadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "security_sensor_camera_read_errors_total",
		Help: "Frame source read failures",
	})
	CameraFramesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "security_sensor_camera_frames_dropped_total",
		Help: "Frames overwritten before the scan loop consumed them",
	})
	PublishErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_sensor_publish_errors_total",
		Help: "Failed MQTT publishes by message kind",
	}, []string{"kind"})
	PublishDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_sensor_publish_dropped_total",
		Help: "Outbound messages dropped because the queue was full, by kind",
	}, []string{"kind"})
)

// Histograms
var (
	ClassifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "security_sensor_classify_duration_seconds",
		Help:    "Classifier latency",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
)

// SetPhase marks phase as the only active lifecycle phase.
func SetPhase(phase string, all []string) {
	for _, p := range all {
		v := 0.0
		if p == phase {
			v = 1
		}
		LifecyclePhase.WithLabelValues(p).Set(v)
	}
}
