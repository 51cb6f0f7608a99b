// Command security-sensor watches a camera for target objects and streams a
// monochrome bitmap to a remote display over MQTT until acknowledged.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/security-sensor/internal/camera"
	"github.com/sweeney/security-sensor/internal/classify"
	"github.com/sweeney/security-sensor/internal/config"
	"github.com/sweeney/security-sensor/internal/gpio"
	"github.com/sweeney/security-sensor/internal/logging"
	"github.com/sweeney/security-sensor/internal/logic"
	"github.com/sweeney/security-sensor/internal/mqtt"
	"github.com/sweeney/security-sensor/internal/status"
	"github.com/sweeney/security-sensor/internal/web"
)

// drainTimeout bounds how long shutdown waits for queued MQTT messages.
const drainTimeout = 5 * time.Second

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

func newDetector(cfg config.Config) (*classify.Detector, error) {
	classes, err := classify.ParseClassSet(cfg.Model.Classes)
	if err != nil {
		return nil, err
	}
	backend, err := classify.NewBackend(cfg.Model.Kind, classify.Options{
		ModelPath:   cfg.Model.Path,
		Threads:     cfg.Model.Threads,
		ClassOffset: cfg.Model.ClassOffset,
	})
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	detector, err := classify.NewDetector(backend, classes, float32(cfg.Model.Score))
	if err != nil {
		backend.Close()
		return nil, err
	}
	return detector, nil
}

func openCamera(cfg config.Config) (*camera.Webcam, error) {
	cam, err := camera.NewWebcam(camera.Config{
		Index:  cfg.Camera.Index,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    float32(cfg.Camera.FPS),
	})
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Camera.Index, err)
	}
	return cam, nil
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, detector.Close()) }()

	cam, err := openCamera(cfg)
	if err != nil {
		return err
	}

	// Print state mode
	if cfg.PrintState {
		defer cam.Close()
		return printState(cam, detector)
	}

	interval := cfg.FrameInterval()
	frames := camera.NewLatest(cam, interval, logger.Named("camera"))
	defer func() { err = multierr.Append(err, frames.Close()) }()

	lifecycle, err := logic.NewShared(logic.Config{
		Threshold:      cfg.Detection.Threshold,
		StreamWindow:   cfg.Detection.StreamWindow,
		CooldownWindow: cfg.Detection.CooldownWindow,
	})
	if err != nil {
		return err
	}

	clk := clock.New()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(clk, status.Config{
		FrameIntervalMs: interval.Milliseconds(),
		StreamMs:        cfg.Detection.StreamWindow.Milliseconds(),
		CooldownMs:      cfg.Detection.CooldownWindow.Milliseconds(),
		HeartbeatMs:     cfg.Heartbeat.Milliseconds(),
		Threshold:       cfg.Detection.Threshold,
		Score:           cfg.Model.Score,
		Classes:         cfg.Model.Classes,
		ModelKind:       cfg.Model.Kind,
		DisplayWidth:    cfg.Display.Width,
		DisplayHeight:   cfg.Display.Height,
		Broker:          cfg.MQTT.Broker,
		TopicPrefix:     cfg.MQTT.TopicPrefix,
		HTTPAddr:        cfg.HTTPAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Initialize MQTT
	client, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topics:   mqtt.NewTopics(cfg.MQTT.TopicPrefix),
	}, logger.Named("mqtt"))
	if err != nil {
		return err
	}
	publisher := mqtt.NewAsyncPublisher(client, cfg.MQTT.QueueSize, drainTimeout, logger.Named("mqtt"))
	defer func() { err = multierr.Append(err, publisher.Close()) }()

	s := newSensor(sensorDeps{
		Clock:      clk,
		Lifecycle:  lifecycle,
		Frames:     frames,
		Classifier: detector,
		Publisher:  publisher,
		MQTTStatus: publisher,
		Tracker:    tracker,
		Heartbeat:  cfg.Heartbeat,
		Display: display{
			width:     cfg.Display.Width,
			height:    cfg.Display.Height,
			luminance: uint8(cfg.Display.Luminance),
		},
		StartupLimit: cfg.Detection.StartupFailureLimit,
		Logger:       logger.Named("sensor"),
	})

	if err := client.Connect(s.onMQTTAck); err != nil {
		return err
	}

	if cfg.Button.Pin >= 0 {
		button, berr := gpio.NewRealButton(cfg.Button.Pin, cfg.Button.Debounce, s.onButton)
		if berr != nil {
			return fmt.Errorf("init ack button: %w", berr)
		}
		defer func() { err = multierr.Append(err, button.Close()) }()
		logger.Info("ack button ready", zap.Int("pin", cfg.Button.Pin))
	}

	// Publish startup event with full status snapshot
	s.startup()

	logger.Info("started",
		zap.Duration("interval", interval),
		zap.Int("threshold", cfg.Detection.Threshold),
		zap.Duration("stream", cfg.Detection.StreamWindow),
		zap.Duration("cooldown", cfg.Detection.CooldownWindow),
		zap.String("broker", cfg.MQTT.Broker),
		zap.Duration("heartbeat", cfg.Heartbeat))

	g, ctx := errgroup.WithContext(context.Background())
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		g.Go(func() error {
			logger.Info("http status server listening", zap.String("addr", cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-loopCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g.Go(func() error {
		defer stopLoop()
		return runLoop(loopCtx, s, ticker.C, sigCh)
	})
	return g.Wait()
}

// printState classifies a single frame straight from the device.
func printState(cam camera.Source, detector classify.Classifier) error {
	img, err := cam.Read()
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}
	started := time.Now()
	positive, err := detector.Detect(img)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	fmt.Printf("detected: %s (%v)\n", yesNo(positive), time.Since(started).Round(time.Millisecond))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
