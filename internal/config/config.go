// Package config holds the daemon configuration: defaults, YAML file
// loading, command-line flags and validation.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/security-sensor/internal/classify"
)

// Config is the complete daemon configuration.
type Config struct {
	MQTT      MQTT      `yaml:"mqtt"`
	Detection Detection `yaml:"detection"`
	Model     Model     `yaml:"model"`
	Camera    Camera    `yaml:"camera"`
	Display   Display   `yaml:"display"`
	Button    Button    `yaml:"button"`
	Log       Log       `yaml:"log"`

	HTTPAddr  string        `yaml:"http"`
	Heartbeat time.Duration `yaml:"heartbeat"`

	// PrintState classifies one frame, prints the result and exits.
	PrintState bool `yaml:"-"`
}

// MQTT configures the broker connection.
type MQTT struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QueueSize   int    `yaml:"queue_size"`
}

// Detection configures the lifecycle.
type Detection struct {
	// Threshold is the number of consecutive positives tolerated before
	// streaming starts on the next one.
	Threshold      int           `yaml:"threshold"`
	StreamWindow   time.Duration `yaml:"stream_window"`
	CooldownWindow time.Duration `yaml:"cooldown_window"`
	// StartupFailureLimit is the number of classifier failures before the
	// first success that aborts the process.
	StartupFailureLimit int `yaml:"startup_failure_limit"`
}

// Model configures the classifier.
type Model struct {
	Path        string  `yaml:"path"`
	Kind        string  `yaml:"kind"`
	Classes     string  `yaml:"classes"`
	Score       float64 `yaml:"score"`
	Threads     int     `yaml:"threads"`
	ClassOffset int     `yaml:"class_offset"`
}

// Camera configures frame acquisition.
type Camera struct {
	Index  int     `yaml:"index"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`
}

// Display configures the remote bitmap.
type Display struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	Luminance int `yaml:"luminance"`
}

// Button configures the physical acknowledgment button.
type Button struct {
	Pin      int           `yaml:"pin"` // BCM numbering, -1 disables
	Debounce time.Duration `yaml:"debounce"`
}

// Log configures logging.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		MQTT: MQTT{
			Broker:      "tcp://localhost:1883",
			ClientID:    "security-sensor",
			TopicPrefix: "security/sensor",
			QueueSize:   256,
		},
		Detection: Detection{
			Threshold:           5,
			StreamWindow:        30 * time.Second,
			CooldownWindow:      90 * time.Second,
			StartupFailureLimit: 3,
		},
		Model: Model{
			Kind:        classify.KindSSD,
			Classes:     "1",
			Score:       0.7,
			ClassOffset: 1,
		},
		Camera: Camera{
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Display: Display{
			Width:     128,
			Height:    64,
			Luminance: 30,
		},
		Button: Button{
			Pin:      -1,
			Debounce: 50 * time.Millisecond,
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		HTTPAddr:  ":8080",
		Heartbeat: 15 * time.Minute,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FrameInterval is the scan loop period derived from the camera frame rate.
func (c Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Camera.FPS)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.MQTT.Broker == "":
		return errors.New("mqtt broker is required")
	case c.MQTT.TopicPrefix == "":
		return errors.New("mqtt topic prefix is required")
	case c.MQTT.QueueSize <= 0:
		return fmt.Errorf("mqtt queue size must be > 0, got %d", c.MQTT.QueueSize)
	case c.Detection.Threshold < 0:
		return fmt.Errorf("detection threshold must be >= 0, got %d", c.Detection.Threshold)
	case c.Detection.StreamWindow <= 0:
		return fmt.Errorf("stream window must be > 0, got %v", c.Detection.StreamWindow)
	case c.Detection.CooldownWindow <= 0:
		return fmt.Errorf("cooldown window must be > 0, got %v", c.Detection.CooldownWindow)
	case c.Detection.StartupFailureLimit <= 0:
		return fmt.Errorf("startup failure limit must be > 0, got %d", c.Detection.StartupFailureLimit)
	case c.Model.Path == "":
		return errors.New("model path is required")
	case c.Model.Kind != classify.KindSSD && c.Model.Kind != classify.KindClassifier:
		return fmt.Errorf("model kind must be %q or %q, got %q", classify.KindSSD, classify.KindClassifier, c.Model.Kind)
	case c.Model.Score < 0 || c.Model.Score > 1:
		return fmt.Errorf("model score must be within [0, 1], got %v", c.Model.Score)
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return fmt.Errorf("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	case c.Camera.FPS <= 0:
		return fmt.Errorf("camera fps must be > 0, got %v", c.Camera.FPS)
	case c.Display.Width <= 0 || c.Display.Height <= 0:
		return fmt.Errorf("display resolution must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	case c.Display.Luminance < 0 || c.Display.Luminance > 255:
		return fmt.Errorf("display luminance must be within [0, 255], got %d", c.Display.Luminance)
	}
	if _, err := classify.ParseClassSet(c.Model.Classes); err != nil {
		return err
	}
	return nil
}

// BindFlags registers command-line flags that write into cfg. Flag defaults
// are the current values of cfg.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.MQTT.Broker, "broker", cfg.MQTT.Broker, "MQTT broker address")
	fs.StringVar(&cfg.MQTT.Username, "mqtt-user", cfg.MQTT.Username, "MQTT username")
	fs.StringVar(&cfg.MQTT.Password, "mqtt-password", cfg.MQTT.Password, "MQTT password")
	fs.StringVar(&cfg.MQTT.ClientID, "client-id", cfg.MQTT.ClientID, "MQTT client id")
	fs.StringVar(&cfg.MQTT.TopicPrefix, "topic-prefix", cfg.MQTT.TopicPrefix, "MQTT topic prefix")
	fs.IntVar(&cfg.MQTT.QueueSize, "queue", cfg.MQTT.QueueSize, "Outbound MQTT queue capacity")

	fs.IntVar(&cfg.Detection.Threshold, "threshold", cfg.Detection.Threshold, "Consecutive positives tolerated before streaming")
	fs.DurationVar(&cfg.Detection.StreamWindow, "stream", cfg.Detection.StreamWindow, "Streaming window")
	fs.DurationVar(&cfg.Detection.CooldownWindow, "cooldown", cfg.Detection.CooldownWindow, "Cooldown window")
	fs.IntVar(&cfg.Detection.StartupFailureLimit, "startup-failures", cfg.Detection.StartupFailureLimit, "Classifier failures before first success that abort startup")

	fs.StringVar(&cfg.Model.Path, "model", cfg.Model.Path, "TFLite model file")
	fs.StringVar(&cfg.Model.Kind, "model-kind", cfg.Model.Kind, `Model kind: "ssd" or "classifier"`)
	fs.StringVar(&cfg.Model.Classes, "classes", cfg.Model.Classes, "Tracked class ids after the offset, e.g. 1 (person) or 18 (dog)")
	fs.Float64Var(&cfg.Model.Score, "score", cfg.Model.Score, "Minimum detection confidence (exclusive)")
	fs.IntVar(&cfg.Model.Threads, "threads", cfg.Model.Threads, "Interpreter threads (0 = all CPUs)")
	fs.IntVar(&cfg.Model.ClassOffset, "class-offset", cfg.Model.ClassOffset, "Offset added to model class ids (1 maps 0-based COCO SSD output onto label ids)")

	fs.IntVar(&cfg.Camera.Index, "camera", cfg.Camera.Index, "Camera index")
	fs.IntVar(&cfg.Camera.Width, "camera-width", cfg.Camera.Width, "Camera capture width")
	fs.IntVar(&cfg.Camera.Height, "camera-height", cfg.Camera.Height, "Camera capture height")
	fs.Float64Var(&cfg.Camera.FPS, "fps", cfg.Camera.FPS, "Camera frame rate and scan rate")

	fs.IntVar(&cfg.Display.Width, "display-width", cfg.Display.Width, "Remote display width")
	fs.IntVar(&cfg.Display.Height, "display-height", cfg.Display.Height, "Remote display height")
	fs.IntVar(&cfg.Display.Luminance, "luminance", cfg.Display.Luminance, "Bitmap luminance threshold (0-255)")

	fs.IntVar(&cfg.Button.Pin, "button-pin", cfg.Button.Pin, "BCM pin of the acknowledgment button (-1 disables)")
	fs.DurationVar(&cfg.Button.Debounce, "button-debounce", cfg.Button.Debounce, "Acknowledgment button debounce")

	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level")
	fs.BoolVar(&cfg.Log.Development, "log-dev", cfg.Log.Development, "Human-readable console logs")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Also log to this file, rotated")

	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.BoolVar(&cfg.PrintState, "print-state", cfg.PrintState, "Classify one frame, print the result and exit")
}

// Parse builds the configuration from command-line args. When -config names
// a YAML file it is loaded first and flags given explicitly on the command
// line override it.
func Parse(name string, args []string) (Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "YAML configuration file")
	BindFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if *path == "" {
		return cfg, nil
	}

	fileCfg, err := Load(*path)
	if err != nil {
		return cfg, err
	}
	overlay := flag.NewFlagSet(name, flag.ContinueOnError)
	BindFlags(overlay, &fileCfg)
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || setErr != nil {
			return
		}
		setErr = overlay.Set(f.Name, f.Value.String())
	})
	if setErr != nil {
		return cfg, setErr
	}
	return fileCfg, nil
}
