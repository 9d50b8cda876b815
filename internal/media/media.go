// Package media prepares inbound attachments for the AI backend.
// Platform images arrive at full camera resolution; vision endpoints
// bill by pixel, so everything is downscaled before leaving the gateway.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// maxDimension is the longest edge an image keeps after downscaling.
	maxDimension = 1024

	jpegQuality = 85
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// IsImage reports whether the path looks like an image attachment.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Downscale resizes the image at path so its longest edge fits
// maxDimension and writes the result as JPEG next to the original.
// Images already small enough are returned unchanged.
func Downscale(path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open image %s: %w", path, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxDimension && bounds.Dy() <= maxDimension {
		return path, nil
	}

	if bounds.Dx() >= bounds.Dy() {
		img = imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
	}

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".scaled.jpg"
	if err := imaging.Save(img, out, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("save scaled image: %w", err)
	}
	return out, nil
}

// Cleanup removes a scaled artifact if Downscale produced one.
func Cleanup(original, processed string) {
	if processed != "" && processed != original {
		_ = os.Remove(processed)
	}
}
