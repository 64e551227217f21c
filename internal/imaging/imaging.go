// Package imaging turns raw camera frames into photos fit for chat.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
)

// ContentType of every encoded photo.
const ContentType = "image/jpeg"

// DefaultQuality is used when a Transcoder has no quality set.
const DefaultQuality = 90

var (
	// ErrDecodeFailed is returned when a frame is not a decodable image.
	ErrDecodeFailed = errors.New("imaging: decode failed")

	// ErrEncodeFailed is returned when the photo cannot be encoded.
	ErrEncodeFailed = errors.New("imaging: encode failed")
)

// Photo is an encoded image ready for upload.
type Photo struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Transcoder decodes MJPEG frames and re-encodes them as baseline JPEG.
type Transcoder struct {
	// Quality is the JPEG quality, 1-100.
	Quality int
}

// Decode parses a raw frame into an image. MJPEG frames without Huffman
// tables get the standard ones.
func (t Transcoder) Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrDecodeFailed)
	}
	img, err := jpeg.Decode(bytes.NewReader(withHuffmanTables(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return img, nil
}

// Encode writes img as a JPEG photo.
func (t Transcoder) Encode(img image.Image) (Photo, error) {
	quality := t.Quality
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Photo{}, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}

	b := img.Bounds()
	return Photo{
		Data:        buf.Bytes(),
		ContentType: ContentType,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// Transcode runs Decode then Encode.
func (t Transcoder) Transcode(raw []byte) (Photo, error) {
	img, err := t.Decode(raw)
	if err != nil {
		return Photo{}, err
	}
	return t.Encode(img)
}
