package photo

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("only JPG, JPEG, PNG, GIF, WEBP and BMP images are supported")
	ErrScriptableContent = errors.New("HTML, XML and SVG content is not allowed")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	// SVG stays excluded until uploads are sanitized
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// ValidateImageBySniff checks the provided filename (extension) and the first bytes (head)
// against a whitelist of image types. Returns detected mime or an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedFormat
	}

	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", ErrScriptableContent
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", ErrScriptableContent
	}

	if allowedMime[detected] {
		return detected, nil
	}
	return "", ErrUnsupportedFormat
}
