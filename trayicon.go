// ABOUTME: Generates the tray icon as PNG bytes at startup.
// ABOUTME: Draws a bell glyph on a rounded badge, no asset files needed.

package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

const trayIconSize = 64

// trayIconPNG renders the application icon and returns it PNG-encoded.
// Drawn oversized then scaled down so the edges come out smooth.
func trayIconPNG() ([]byte, error) {
	img := drawTrayIcon(128)
	scaled := scaleImage(img, trayIconSize, trayIconSize)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawTrayIcon paints a simple bell on a circular indigo badge.
func drawTrayIcon(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	badge := color.RGBA{R: 88, G: 101, B: 242, A: 255}
	bell := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	cx := float64(size) / 2
	cy := float64(size) / 2
	r := float64(size)/2 - 2

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, badge)
			}
		}
	}

	// Bell body: a trapezoid widening toward the rim.
	top := size * 28 / 128
	rim := size * 86 / 128
	for y := top; y < rim; y++ {
		t := float64(y-top) / float64(rim-top)
		halfW := float64(size) * (10 + 22*t) / 128
		for x := 0; x < size; x++ {
			if dx := float64(x) + 0.5 - cx; dx >= -halfW && dx <= halfW {
				img.SetRGBA(x, y, bell)
			}
		}
	}

	// Clapper below the rim.
	clapperR := float64(size) * 7 / 128
	clapperY := float64(rim) + clapperR + 1
	for y := rim; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - clapperY
			if dx*dx+dy*dy <= clapperR*clapperR {
				img.SetRGBA(x, y, bell)
			}
		}
	}

	return img
}

// scaleImage downsamples src to fit width x height. Returns src unchanged
// when it already fits.
func scaleImage(src image.Image, width, height int) image.Image {
	srcBounds := src.Bounds()
	if srcBounds.Dx() <= width && srcBounds.Dy() <= height {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, srcBounds, xdraw.Over, nil)
	return dst
}
