package image

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/fogleman/gg"
)

// drawTestImage renders a non-uniform test card so lossy encodes have real
// detail to work against. Flat fills compress to almost nothing and hide
// size-target bugs.
func drawTestImage(width, height int) image.Image {
	dc := gg.NewContext(width, height)

	for i := 0; i < width; i += 20 {
		t := float64(i) / float64(width)
		dc.SetRGB(t, 0.4, 1-t)
		dc.DrawRectangle(float64(i), 0, 20, float64(height))
		dc.Fill()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(float64(width)/2, float64(height)/2, float64(height)/4)
	dc.Fill()

	return dc.Image()
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// encodeAnimatedGIF builds a small multi-frame GIF.
func encodeAnimatedGIF(t *testing.T, frames int) []byte {
	t.Helper()
	anim := &gif.GIF{}
	palette := color.Palette{color.Black, color.White, color.RGBA{R: 255, A: 255}}

	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 32, 32), palette)
		for x := 0; x < 32; x++ {
			frame.SetColorIndex(x, (x+i)%32, uint8(1+i%2))
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}
