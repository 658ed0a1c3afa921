package upload

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// maxDecodePixels bounds the bitmap compressImage is willing to allocate.
const maxDecodePixels = 40_000_000

var (
	errNotSmaller    = errors.New("compressed image is not smaller")
	errTooManyPixels = errors.New("image dimensions too large to compress")
)

// compressImage decodes data, scales the longest side down to maxDim and
// re-encodes it as JPEG. It returns errNotSmaller when the result would not
// save space and errTooManyPixels when the header declares a bitmap larger
// than maxDecodePixels.
func compressImage(data []byte, maxDim, quality int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxDecodePixels {
		return nil, errTooManyPixels
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		if w >= h {
			h = h * maxDim / w
			w = maxDim
		} else {
			w = w * maxDim / h
			h = maxDim
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; flatten onto white first.
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	if buf.Len() >= len(data) {
		return nil, errNotSmaller
	}
	return buf.Bytes(), nil
}
