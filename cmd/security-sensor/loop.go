package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/sweeney/security-sensor/internal/bitmap"
	"github.com/sweeney/security-sensor/internal/camera"
	"github.com/sweeney/security-sensor/internal/classify"
	"github.com/sweeney/security-sensor/internal/logic"
	"github.com/sweeney/security-sensor/internal/metrics"
	"github.com/sweeney/security-sensor/internal/mqtt"
	"github.com/sweeney/security-sensor/internal/status"
)

var phaseNames = func() []string {
	names := make([]string, len(logic.Phases))
	for i, p := range logic.Phases {
		names[i] = string(p)
	}
	return names
}()

// frameReader yields the newest camera frame, or camera.ErrNoFrame.
type frameReader interface {
	Read() (image.Image, error)
}

// display is the geometry and threshold of the remote bitmap.
type display struct {
	width     int
	height    int
	luminance uint8
}

// sensor drives the shared lifecycle from camera frames and turns its
// transitions into MQTT output. tick runs on the loop goroutine only;
// acknowledge may be called from any goroutine.
type sensor struct {
	clock        clock.Clock
	lifecycle    *logic.Shared
	frames       frameReader
	classifier   classify.Classifier
	publisher    mqtt.Publisher
	mqttStatus   mqtt.ConnectionStatus
	tracker      *status.Tracker
	heartbeat    *logic.Heartbeat
	display      display
	startupLimit int
	logger       *zap.Logger

	phase     logic.Phase
	succeeded bool
	failures  int
}

// sensorDeps are the collaborators of a sensor.
type sensorDeps struct {
	Clock        clock.Clock
	Lifecycle    *logic.Shared
	Frames       frameReader
	Classifier   classify.Classifier
	Publisher    mqtt.Publisher
	MQTTStatus   mqtt.ConnectionStatus // optional
	Tracker      *status.Tracker
	Heartbeat    time.Duration
	Display      display
	StartupLimit int
	Logger       *zap.Logger
}

func newSensor(d sensorDeps) *sensor {
	return &sensor{
		clock:        d.Clock,
		lifecycle:    d.Lifecycle,
		frames:       d.Frames,
		classifier:   d.Classifier,
		publisher:    d.Publisher,
		mqttStatus:   d.MQTTStatus,
		tracker:      d.Tracker,
		heartbeat:    logic.NewHeartbeat(d.Heartbeat, d.Clock.Now()),
		display:      d.Display,
		startupLimit: d.StartupLimit,
		logger:       d.Logger,
		phase:        d.Lifecycle.State().Phase(),
	}
}

// runLoop scans on every tick until a signal arrives or ctx is cancelled.
// It returns an error only when the classifier never works at startup.
func runLoop(ctx context.Context, s *sensor, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case sg := <-sig:
			name := signalName(sg)
			s.logger.Info("received signal, shutting down", zap.String("signal", name))
			s.shutdown(name)
			return nil

		case <-ctx.Done():
			s.logger.Info("context cancelled, shutting down")
			s.shutdown("CANCELLED")
			return nil

		case <-tick:
			if err := s.tick(); err != nil {
				s.shutdown("CLASSIFIER_FAILURE")
				return err
			}
		}
	}
}

func signalName(sg os.Signal) string {
	switch sg {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// tick runs one scan cycle.
func (s *sensor) tick() error {
	now := s.clock.Now()
	s.checkHeartbeat(now)

	img, frameErr := s.frames.Read()
	if frameErr != nil && !errors.Is(frameErr, camera.ErrNoFrame) {
		s.logger.Warn("frame read failed", zap.Error(frameErr))
	}

	var state logic.State
	if logic.Suppressed(s.lifecycle.State()) {
		// The classifier stays idle; only time moves the lifecycle on.
		state = s.lifecycle.Advance(now, false)
		metrics.CyclesTotal.WithLabelValues("suppressed").Inc()
	} else {
		if frameErr != nil {
			metrics.CyclesTotal.WithLabelValues("no_frame").Inc()
			return nil
		}
		positive, err := s.classify(img)
		if err != nil {
			metrics.CyclesTotal.WithLabelValues("error").Inc()
			return s.classifyFailed(err)
		}
		metrics.CyclesTotal.WithLabelValues("classified").Inc()
		state = s.lifecycle.Advance(now, positive)
	}

	s.transition(now, state)
	if _, ok := state.(logic.Streaming); ok && frameErr == nil {
		s.stream(now, img)
	}
	s.update()
	return nil
}

func (s *sensor) classify(img image.Image) (bool, error) {
	started := time.Now()
	positive, err := s.classifier.Detect(img)
	metrics.ClassifyDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.ClassificationsTotal.WithLabelValues("error").Inc()
		return false, err
	}
	s.succeeded = true
	s.failures = 0
	if positive {
		metrics.ClassificationsTotal.WithLabelValues("positive").Inc()
	} else {
		metrics.ClassificationsTotal.WithLabelValues("negative").Inc()
	}
	return positive, nil
}

// classifyFailed skips the cycle. Before the first success, StartupLimit
// consecutive failures are fatal.
func (s *sensor) classifyFailed(err error) error {
	if !s.succeeded {
		s.failures++
		if s.failures >= s.startupLimit {
			return fmt.Errorf("classifier failed %d times before first success: %w", s.failures, err)
		}
	}
	s.logger.Warn("classification failed, skipping cycle", zap.Error(err), zap.Int("startup_failures", s.failures))
	return nil
}

// transition publishes the alert belonging to a phase change seen by the loop.
// Acknowledgments publish their own alert when they happen.
func (s *sensor) transition(now time.Time, state logic.State) {
	prev, cur := s.phase, state.Phase()
	s.phase = cur
	if prev == cur {
		return
	}
	s.logger.Debug("lifecycle transition", zap.String("from", string(prev)), zap.String("to", string(cur)))

	switch cur {
	case logic.PhaseStreaming:
		metrics.AlertsTotal.Inc()
		s.logger.Info("target detected, streaming", zap.Time("since", logic.Since(state)))
		s.alert(mqtt.Alert{Timestamp: now, Event: mqtt.AlertDetected})
	case logic.PhaseStreamEnded:
		s.logger.Info("stream window elapsed")
		s.alert(mqtt.Alert{Timestamp: now, Event: mqtt.AlertStreamEnd})
	case logic.PhaseScanning:
		if prev == logic.PhaseCoolingDown {
			s.logger.Info("cooldown elapsed, scanning resumed")
			s.alert(mqtt.Alert{Timestamp: now, Event: mqtt.AlertResumed})
		}
	}
}

func (s *sensor) alert(a mqtt.Alert) {
	if err := s.publisher.PublishAlert(a); err != nil {
		s.logger.Warn("alert publish error", zap.String("event", string(a.Event)), zap.Error(err))
	}
}

func (s *sensor) stream(now time.Time, img image.Image) {
	data, err := bitmap.EncodeSize(img, s.display.width, s.display.height, s.display.luminance)
	if err != nil {
		metrics.EncodeErrorsTotal.Inc()
		s.logger.Warn("bitmap encode failed", zap.Error(err))
		return
	}
	if err := s.publisher.PublishFrame(data); err != nil {
		s.logger.Warn("frame publish error", zap.Error(err))
		return
	}
	metrics.StreamFramesTotal.Inc()
	s.tracker.SetFrame(data, now)
}

// update refreshes the status tracker and gauges.
func (s *sensor) update() {
	state, consecutive, counts := s.lifecycle.Snapshot()
	s.tracker.Update(state, consecutive, counts)
	if s.mqttStatus != nil {
		s.tracker.SetMQTTConnected(s.mqttStatus.IsConnected())
	}
	metrics.SetPhase(string(state.Phase()), phaseNames)
	metrics.DebounceCount.Set(float64(consecutive))
}

// acknowledge pre-empts streaming or detection and restarts the cooldown.
// transport labels the metric; source is echoed in the alert.
func (s *sensor) acknowledge(transport, source string) {
	now := s.clock.Now()
	s.lifecycle.Acknowledge(now)
	metrics.AcknowledgmentsTotal.WithLabelValues(transport).Inc()
	s.logger.Info("acknowledged", zap.String("transport", transport), zap.String("source", source))
	s.alert(mqtt.Alert{Timestamp: now, Event: mqtt.AlertAcknowledged, Source: source})
}

func (s *sensor) onMQTTAck(source string) {
	s.acknowledge(mqtt.SourceMQTT, source)
}

func (s *sensor) onButton() {
	s.acknowledge(mqtt.SourceButton, mqtt.SourceButton)
}

func (s *sensor) checkHeartbeat(now time.Time) {
	hb := s.heartbeat.Check(now)
	if hb == nil {
		return
	}
	_, _, counts := s.lifecycle.Snapshot()
	s.logger.Info("heartbeat", zap.Duration("uptime", hb.Uptime), zap.Int("alerts", counts.Alerts),
		zap.Int("acknowledgments", counts.Acknowledgments))
	if net := readNetworkInfo(); net != nil {
		s.tracker.SetNetwork(net)
	}
	s.system(hb.Timestamp, "HEARTBEAT", "", false)
}

func (s *sensor) startup() {
	s.system(s.clock.Now(), "STARTUP", "", true)
}

func (s *sensor) shutdown(reason string) {
	s.system(s.clock.Now(), "SHUTDOWN", reason, true)
}

// system publishes a status snapshot as a system event.
func (s *sensor) system(now time.Time, event, reason string, retained bool) {
	s.update()
	snap := s.tracker.Snapshot()
	err := s.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		s.logger.Warn("system publish error", zap.String("event", event), zap.Error(err))
		return
	}
	s.logger.Debug("published system event", zap.String("event", event))
}
