package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"

	"github.com/erazemk/popis/internal/model"
	"golang.org/x/image/draw"

	// Extra input formats accepted from capture devices and scanners.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Default ingestion parameters.
const (
	DefaultMaxDimension = 1024
	DefaultQuality      = 0.8
	DefaultMaxPixels    = 50_000_000
)

// ErrTooManyPixels is wrapped in an *ImageDecodeError when the header of a
// capture declares more pixels than Options.MaxPixels allows.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// AllowedMIME lists the image types served back with their own content type.
// Anything else is kept as application/octet-stream.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// StorableMIME returns mime if it is an allowed image type, else
// application/octet-stream.
func StorableMIME(mime string) string {
	if AllowedMIME[mime] {
		return mime
	}
	return "application/octet-stream"
}

// OutputMIME is the MIME type of every re-encoded image.
const OutputMIME = "image/jpeg"

// Options controls how a captured image is reduced before storage.
type Options struct {
	// MaxDimension bounds the larger side of the output, in pixels.
	MaxDimension int
	// Quality is the lossy re-encoding quality in (0, 1].
	Quality float64
	// MaxPixels bounds width*height of an input before it is decoded.
	// Zero means DefaultMaxPixels.
	MaxPixels int64
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{MaxDimension: DefaultMaxDimension, Quality: DefaultQuality, MaxPixels: DefaultMaxPixels}
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if o.MaxDimension < 1 {
		return fmt.Errorf("max dimension must be positive, got %d", o.MaxDimension)
	}
	if o.Quality <= 0 || o.Quality > 1 {
		return fmt.Errorf("quality must be in (0, 1], got %g", o.Quality)
	}
	if o.MaxPixels < 0 {
		return fmt.Errorf("max pixels must not be negative, got %d", o.MaxPixels)
	}
	return nil
}

func (o Options) pixelLimit() int64 {
	if o.MaxPixels == 0 {
		return DefaultMaxPixels
	}
	return o.MaxPixels
}

// jpegQuality maps the (0, 1] quality factor onto the encoder's 1..100 scale.
func (o Options) jpegQuality() int {
	q := int(math.Round(o.Quality * 100))
	return max(1, min(q, 100))
}

// ImageDecodeError is returned when a captured payload cannot be decoded.
// MIME is the type sniffed from the leading bytes.
type ImageDecodeError struct {
	MIME string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decoding image (%s): %v", e.MIME, e.Err)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Err
}

// Result contains the processed image data.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
	// Photo references Data through a data: URL. Callers that keep the
	// bytes in a blob store replace the URL.
	Photo model.Photo
}

// Ingest turns a raw capture into a storable photo of the given category.
// The part label is resolved first: a parts category without a label fails
// with model.ErrPartRequired, any other category drops the label.
//
// Ingest never substitutes data. On a decode failure it returns an
// *ImageDecodeError and the caller decides whether to keep the original.
// A cancelled ctx yields ctx.Err() and no result.
func Ingest(ctx context.Context, raw []byte, opts Options, category model.CategoryInfo, part string) (*Result, error) {
	part, err := category.ResolvePart(part)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", category.Name, err)
	}

	res, err := process(ctx, raw, opts)
	if err != nil {
		return nil, err
	}
	res.Photo = model.Photo{URL: DataURL(res.MIME, res.Data), Part: part}
	return res, nil
}

// Process reads image data, downscales it if larger than opts.MaxDimension,
// applies the EXIF orientation and re-encodes it as JPEG.
func Process(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	return process(ctx, data, opts)
}

func process(ctx context.Context, raw []byte, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The decoder allocates the full frame from the header alone.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(raw)); err == nil {
		if px := int64(cfg.Width) * int64(cfg.Height); px > opts.pixelLimit() {
			return nil, &ImageDecodeError{
				MIME: SniffMIME(raw),
				Err:  fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels),
			}
		}
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			err = errors.New("unsupported or unrecognized format")
		}
		return nil, &ImageDecodeError{MIME: SniffMIME(raw), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img = downscale(img, opts.MaxDimension)
	if format == "jpeg" || format == "tiff" {
		img = orient(img, readOrientation(raw))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.jpegQuality()}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &Result{
		Data:   buf.Bytes(),
		MIME:   OutputMIME,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// Dimensions returns the size an image of w×h has after downscaling to
// maxDim. The aspect ratio is preserved and images are never upscaled.
func Dimensions(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}

	scale := float64(maxDim) / float64(max(w, h))
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))

	return max(newW, 1), max(newH, 1)
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	newW, newH := Dimensions(w, h, maxDim)
	if newW == w && newH == h {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// SniffMIME reports the content type of data from its leading bytes.
func SniffMIME(data []byte) string {
	return http.DetectContentType(data)
}
