package storage

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png" // register decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// Thumbnail dimensions served on course cards (16:9).
const (
	ThumbnailWidth  = 800
	ThumbnailHeight = 450
)

var ErrUnsupportedImage = errors.New("unsupported image format, use jpeg, png or webp")

// NormalizeThumbnail decodes a jpeg, png or webp image, centre-crops it to 16:9
// and scales it to ThumbnailWidth x ThumbnailHeight, returning JPEG bytes.
func NormalizeThumbnail(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnsupportedImage
	}

	crop := coverRect(src.Bounds(), ThumbnailWidth, ThumbnailHeight)
	dst := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// coverRect returns the largest centred sub-rectangle of b with aspect w:h.
func coverRect(b image.Rectangle, w, h int) image.Rectangle {
	bw, bh := b.Dx(), b.Dy()
	if bw*h > bh*w {
		cw := bh * w / h
		x0 := b.Min.X + (bw-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := bw * h / w
	y0 := b.Min.Y + (bh-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}
