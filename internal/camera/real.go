//go:build linux

package camera

import (
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/pion/mediadevices/pkg/driver"
	mediadevicescamera "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
)

// Webcam reads frames from a V4L2 device.
type Webcam struct {
	driver driver.Driver
	reader video.Reader
}

// NewWebcam opens the cfg.Index'th video input at cfg.Width x cfg.Height.
func NewWebcam(cfg Config) (*Webcam, error) {
	mediadevicescamera.Initialize()

	drivers := driver.GetManager().Query(driver.FilterVideoRecorder())
	if cfg.Index < 0 || cfg.Index >= len(drivers) {
		return nil, fmt.Errorf("camera: index %d out of range (%d devices)", cfg.Index, len(drivers))
	}
	sort.Slice(drivers, func(i, j int) bool {
		return drivers[i].Info().Label < drivers[j].Info().Label
	})
	d := drivers[cfg.Index]

	if d.Status() == driver.StateClosed {
		if err := d.Open(); err != nil {
			return nil, fmt.Errorf("camera: open %s: %w", d.Info().Label, err)
		}
	}

	media, err := pickMedia(d.Properties(), cfg)
	if err != nil {
		d.Close()
		return nil, err
	}

	recorder, ok := d.(driver.VideoRecorder)
	if !ok {
		d.Close()
		return nil, fmt.Errorf("camera: %s is not a video recorder", d.Info().Label)
	}
	reader, err := recorder.VideoRecord(media)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("camera: record %s: %w", d.Info().Label, err)
	}

	return &Webcam{driver: d, reader: reader}, nil
}

// pickMedia chooses a driver mode matching the requested resolution,
// preferring MJPEG then YUYV.
func pickMedia(props []prop.Media, cfg Config) (prop.Media, error) {
	rank := func(f frame.Format) int {
		switch f {
		case frame.FormatMJPEG:
			return 0
		case frame.FormatYUYV:
			return 1
		}
		return 2
	}

	var best *prop.Media
	for i := range props {
		p := props[i]
		if p.Width != cfg.Width || p.Height != cfg.Height {
			continue
		}
		if best == nil || rank(p.FrameFormat) < rank(best.FrameFormat) {
			best = &props[i]
		}
	}
	if best == nil {
		return prop.Media{}, fmt.Errorf("camera: no mode for %dx%d", cfg.Width, cfg.Height)
	}
	media := *best
	if cfg.FPS > 0 {
		media.FrameRate = cfg.FPS
	}
	return media, nil
}

// Read returns the next frame copied out of the driver buffer.
func (w *Webcam) Read() (image.Image, error) {
	img, release, err := w.reader.Read()
	if err != nil {
		return nil, fmt.Errorf("camera: read: %w", err)
	}
	if release != nil {
		defer release()
	}
	return imaging.Clone(img), nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	return w.driver.Close()
}
