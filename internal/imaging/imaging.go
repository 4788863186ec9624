// Package imaging turns uploaded image bytes into fixed-geometry JPEGs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gen2brain/jpegli"
	"github.com/yardline/internal/apperr"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ContentType is the MIME type of every transformed image.
const ContentType = "image/jpeg"

// progressiveLevel 0 is baseline in jpegli; anything above emits SOF2 scans.
const progressiveLevel = 2

// Profile describes the output geometry and quality for one call site.
// Fill profiles crop to the target aspect and always emit exactly Width×Height;
// other profiles fit inside the box and never upscale.
type Profile struct {
	Name       string
	Width      int
	Height     int
	Fill       bool
	Quality    int
	AutoRotate bool
}

var (
	ProfileHeader  = Profile{Name: "header", Width: 1200, Height: 630, Fill: true, Quality: 80}
	ProfileGallery = Profile{Name: "gallery", Width: 1200, Height: 800, Quality: 85, AutoRotate: true}
)

// Transformer is the seam the ingestion pipeline depends on.
type Transformer interface {
	Transform(data []byte, profile Profile) ([]byte, error)
}

// JPEGTransformer is the production Transformer.
type JPEGTransformer struct{}

func (JPEGTransformer) Transform(data []byte, profile Profile) ([]byte, error) {
	return Transform(data, profile)
}

// DecodeDataURL strips a data:<mime>;base64, prefix and decodes the payload.
func DecodeDataURL(raw string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(raw)
	const marker = "base64,"
	idx := strings.Index(trimmed, marker)
	if idx < 0 {
		return nil, "", apperr.Invalid("image must be a base64 data URL", nil)
	}

	var mimeType string
	if header := trimmed[:idx]; strings.HasPrefix(header, "data:") {
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";")
	}

	payload := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, trimmed[idx+len(marker):])
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", apperr.Invalid("image payload is not valid base64", err)
		}
	}
	if len(data) == 0 {
		return nil, "", apperr.Invalid("image payload is empty", nil)
	}
	return data, mimeType, nil
}

// Transform decodes data, reshapes it for profile and re-encodes it as JPEG.
func Transform(data []byte, profile Profile) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Invalid("image could not be decoded", err)
	}
	if profile.AutoRotate {
		src = applyOrientation(src, readOrientation(data))
	}

	var out *image.RGBA
	if profile.Fill {
		out = fill(src, profile.Width, profile.Height)
	} else {
		out = fit(src, profile.Width, profile.Height)
	}

	quality := profile.Quality
	if quality <= 0 {
		quality = jpegli.DefaultQuality
	}
	var buf bytes.Buffer
	opts := &jpegli.EncodingOptions{
		Quality:              quality,
		ChromaSubsampling:    image.YCbCrSubsampleRatio420,
		ProgressiveLevel:     progressiveLevel,
		OptimizeCoding:       true,
		AdaptiveQuantization: true,
	}
	if err := jpegli.Encode(&buf, out, opts); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Dimensions reports the pixel size of an encoded image without decoding it fully.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, apperr.Invalid("image could not be decoded", err)
	}
	return cfg.Width, cfg.Height, nil
}

func canvas(width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return dst
}

func fill(src image.Image, width, height int) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	crop := bounds
	if w*height > h*width {
		cropW := max(1, h*width/height)
		x0 := bounds.Min.X + (w-cropW)/2
		crop = image.Rect(x0, bounds.Min.Y, x0+cropW, bounds.Max.Y)
	} else if w*height < h*width {
		cropH := max(1, w*height/width)
		y0 := bounds.Min.Y + (h-cropH)/2
		crop = image.Rect(bounds.Min.X, y0, bounds.Max.X, y0+cropH)
	}

	dst := canvas(width, height)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}

func fit(src image.Image, maxWidth, maxHeight int) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxWidth && h <= maxHeight {
		dst := canvas(w, h)
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
		return dst
	}

	nw, nh := maxWidth, maxHeight
	if w*maxHeight > h*maxWidth {
		nh = max(1, h*maxWidth/w)
	} else {
		nw = max(1, w*maxHeight/h)
	}
	dst := canvas(nw, nh)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
