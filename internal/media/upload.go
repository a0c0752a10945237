package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxUploadSize is the largest image a user may upload.
const MaxUploadSize = 5 << 20

// MaxDimension is the maximum width or height of a stored listing image.
const MaxDimension = 1600

// MaxSourcePixels and MaxSourceSide bound the decoded size of an upload.
// A compressed file can declare a far larger canvas than its byte size.
const (
	MaxSourcePixels = 40_000_000
	MaxSourceSide   = 12_000
)

// JPEGQuality is the compression quality for stored images.
const JPEGQuality = 85

// AllowedMIME lists the accepted upload types, detected from content.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidationError is an upload the user must fix; its message is safe to show.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidation reports whether err is a user-facing upload validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Image is a processed upload ready to store.
type Image struct {
	Data []byte
	MIME string
	Key  string
}

// Process validates an upload by sniffing its bytes, downscales it to
// MaxDimension and re-encodes it as JPEG under a fresh object key in folder.
func Process(r io.Reader, folder string) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) == 0 {
		return nil, &ValidationError{Reason: "image file is empty"}
	}
	if len(data) > MaxUploadSize {
		return nil, &ValidationError{Reason: "image is larger than 5 MB"}
	}

	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported image type %s (JPEG, PNG or WebP only)", detected)}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: "image could not be decoded"}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 ||
		cfg.Width > MaxSourceSide || cfg.Height > MaxSourceSide ||
		cfg.Width*cfg.Height > MaxSourcePixels {
		return nil, &ValidationError{Reason: fmt.Sprintf("image dimensions %dx%d are too large", cfg.Width, cfg.Height)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Reason: "image could not be decoded"}
	}
	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	key := uuid.NewString() + ".jpg"
	if folder != "" {
		key = folder + "/" + key
	}
	return &Image{Data: buf.Bytes(), MIME: "image/jpeg", Key: key}, nil
}

// downscale resizes img so neither side exceeds maxDim, keeping the aspect
// ratio. Images already within bounds are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(int(float64(h)*float64(maxDim)/float64(w)), 1)
	} else {
		newW = max(int(float64(w)*float64(maxDim)/float64(h)), 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
