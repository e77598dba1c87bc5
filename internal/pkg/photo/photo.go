// Package photo validates uploaded asset photos, builds thumbnails and reads
// EXIF capture data.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	_ "golang.org/x/image/webp"
)

const (
	// ThumbnailWidth is the width of generated thumbnails; height keeps the
	// aspect ratio.
	ThumbnailWidth = 400
	// MaxUploadSize caps a single photo upload.
	MaxUploadSize = 10 << 20

	thumbnailQuality = 82
	sniffLength      = 512
)

var ErrTooLarge = errors.New("photo exceeds the maximum upload size")

func init() {
	// Register Nikon and Canon maker notes
	exif.RegisterParsers(mknote.All...)
}

// Processed is a validated photo plus its derived thumbnail.
type Processed struct {
	ContentType string
	Extension   string
	Width       int
	Height      int
	Thumbnail   []byte
	TakenAt     *time.Time
	Latitude    *float64
	Longitude   *float64
}

// Process validates data, decodes it with EXIF orientation applied and
// renders a JPEG thumbnail.
func Process(filename string, data []byte) (*Processed, error) {
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}
	head := data
	if len(head) > sniffLength {
		head = head[:sniffLength]
	}
	contentType, err := ValidateImageBySniff(filename, head)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	bounds := img.Bounds()

	thumb, err := Thumbnail(img)
	if err != nil {
		return nil, err
	}

	p := &Processed{
		ContentType: contentType,
		Extension:   strings.ToLower(filepath.Ext(filename)),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Thumbnail:   thumb,
	}
	readExif(p, data)
	return p, nil
}

// Thumbnail scales img down to ThumbnailWidth and encodes it as JPEG. Smaller
// images are not upscaled.
func Thumbnail(img image.Image) ([]byte, error) {
	if img.Bounds().Dx() > ThumbnailWidth {
		img = imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// readExif fills capture time and GPS position when present. Missing EXIF is
// normal for PNG, GIF and screenshots.
func readExif(p *Processed, data []byte) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debugf("[Photo] No EXIF data: %v", err)
		return
	}
	if dt, err := x.DateTime(); err == nil {
		p.TakenAt = &dt
	}
	if lat, long, err := x.LatLong(); err == nil {
		p.Latitude = &lat
		p.Longitude = &long
	}
}
