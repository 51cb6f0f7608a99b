// Package bitmap packs camera frames into 1-bit-per-pixel bitmaps for small
// monochrome displays such as the SSD1306.
package bitmap

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Display resolution of the remote OLED.
const (
	Width  = 128
	Height = 64
)

// ErrEmptyFrame is returned when the source frame or target size has no pixels.
var ErrEmptyFrame = errors.New("bitmap: empty frame")

// Size returns the packed length in bytes of a w x h bitmap.
func Size(w, h int) int {
	return h * RowBytes(w)
}

// RowBytes returns the number of bytes per packed row of width w.
func RowBytes(w int) int {
	return (w + 7) / 8
}

// Encode resizes img to the display resolution and packs it.
func Encode(img image.Image, threshold uint8) ([]byte, error) {
	return EncodeSize(img, Width, Height, threshold)
}

// EncodeSize resizes img to w x h with nearest-neighbour sampling and packs
// it row-major, most significant bit first. A pixel is set when the average
// of its R, G and B channels exceeds threshold. Each row is padded with zero
// bits to a whole byte.
func EncodeSize(img image.Image, w, h int, threshold uint8) ([]byte, error) {
	if img == nil || img.Bounds().Empty() || w <= 0 || h <= 0 {
		return nil, ErrEmptyFrame
	}
	resized := imaging.Resize(img, w, h, imaging.NearestNeighbor)
	return pack(resized, threshold), nil
}

func pack(img *image.NRGBA, threshold uint8) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowBytes := RowBytes(w)
	out := make([]byte, h*rowBytes)

	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride:]
		dst := out[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < w; x++ {
			p := src[x*4 : x*4+3]
			lum := (int(p[0]) + int(p[1]) + int(p[2])) / 3
			if lum > int(threshold) {
				dst[x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return out
}

// Image expands a packed bitmap back into a grayscale image with set bits
// white. Missing trailing bytes are treated as unset.
func Image(data []byte, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	rowBytes := RowBytes(w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*rowBytes + x/8
			if i < len(data) && data[i]&(0x80>>(x%8)) != 0 {
				img.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}
	return img
}
