package gemini

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"golang.org/x/image/draw"
	"google.golang.org/genai"
)

// MaxImageDimension is the vendor pixel limit; rasters with a longer
// side are downscaled before encoding.
const MaxImageDimension = 7500

var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// MediaType maps a file path to its MIME type by extension, defaulting
// to image/png.
func MediaType(path string) string {
	if mt, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "image/png"
}

// FitWithin scales dimensions down to fit max on the longest side,
// preserving aspect ratio. Dimensions already within the limit are
// returned unchanged.
func FitWithin(width, height, max int) (int, int) {
	if width <= max && height <= max {
		return width, height
	}
	if width > height {
		return max, height * max / width
	}
	return width * max / height, max
}

// ImageParts encodes the images at the given paths as inline data
// parts. Unreadable files are logged and skipped rather than failing
// the call; rasters beyond the vendor limit are downscaled, SVGs pass
// through untouched.
func (c *Client) ImageParts(paths []string) []*genai.Part {
	var parts []*genai.Part
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			c.logger.Warn("skipping unreadable image", "path", path, "error", err)
			continue
		}

		mediaType := MediaType(path)
		if mediaType != "image/svg+xml" {
			if resized, ok := c.downscale(data, path); ok {
				data = resized
			}
		}

		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mediaType, Data: data},
		})
	}
	return parts
}

// downscale re-encodes a raster whose longest side exceeds the vendor
// limit. Returns false when no resize is needed or the data cannot be
// decoded, in which case the original bytes are sent.
func (c *Client) downscale(data []byte, path string) ([]byte, bool) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		c.logger.Warn("cannot decode image for resize check", "path", path, "error", err)
		return nil, false
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := FitWithin(width, height, MaxImageDimension)
	if newWidth == width && newHeight == height {
		return nil, false
	}

	c.logger.Info("resizing image", "path", path,
		"from", image.Pt(width, height), "to", image.Pt(newWidth, newHeight))

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		c.logger.Warn("failed to re-encode resized image", "path", path, "error", err)
		return nil, false
	}
	return buf.Bytes(), true
}
