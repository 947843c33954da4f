package processor

import (
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	// Registers the WebP decoder with image.Decode, which imaging.Decode uses.
	_ "golang.org/x/image/webp"
)

// FixedFormat is the encoding used when conversion is requested.
const FixedFormat = imaging.JPEG

const fixedExt = ".jpg"

var supportedExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".tiff": {},
	".gif":  {},
	".svg":  {},
}

// IsSupported reports whether name has an image extension the batch accepts.
// The match is case-insensitive.
func IsSupported(name string) bool {
	_, ok := supportedExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// WithFixedExt replaces the extension of path with the fixed format's.
func WithFixedExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + fixedExt
}

// OutputPath returns the path a pass writes for destination dst.
func OutputPath(dst string, convert bool) string {
	_, path := outputFormat(dst, convert)
	return path
}

// outputFormat picks the encoder for dst. Destinations the encoder cannot
// write (webp, svg) fall back to the fixed format with a rewritten extension.
func outputFormat(dst string, convert bool) (imaging.Format, string) {
	if convert {
		return FixedFormat, WithFixedExt(dst)
	}

	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return FixedFormat, WithFixedExt(dst)
	}

	return format, dst
}
