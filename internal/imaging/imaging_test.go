package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/erazemk/popis/internal/model"
)

var (
	itEquipment = model.CategoryInfo{Name: model.CategoryITEquipment, Parts: model.DefaultParts}
	land        = model.CategoryInfo{Name: model.CategoryLand}
)

func createTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	return img
}

func createTestJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, createTestImage(w, h), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, createTestImage(w, h))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestIngestDownscale(t *testing.T) {
	data := createTestJPEG(4000, 2000)
	res, err := Ingest(context.Background(), data, Options{MaxDimension: 1024, Quality: 0.8}, land, "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Width != 1024 || res.Height != 512 {
		t.Errorf("result size = %dx%d, want 1024x512", res.Width, res.Height)
	}
	if w, h := decodedSize(t, res.Data); w != 1024 || h != 512 {
		t.Errorf("decoded size = %dx%d, want 1024x512", w, h)
	}
	if res.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", res.MIME)
	}
}

func TestIngestSmallImageNotUpscaled(t *testing.T) {
	data := createTestPNG(50, 30)
	res, err := Ingest(context.Background(), data, DefaultOptions(), land, "")
	if err != nil {
		t.Fatalf("Ingest small image: %v", err)
	}
	if w, h := decodedSize(t, res.Data); w != 50 || h != 30 {
		t.Errorf("small image should not be resized: got %dx%d", w, h)
	}
}

func TestIngestGIF(t *testing.T) {
	var buf bytes.Buffer
	pal := image.NewPaletted(image.Rect(0, 0, 20, 10), []color.Color{color.Black, color.White})
	gif.Encode(&buf, pal, nil)

	res, err := Ingest(context.Background(), buf.Bytes(), DefaultOptions(), land, "")
	if err != nil {
		t.Fatalf("Ingest GIF: %v", err)
	}
	if res.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg (always outputs JPEG), got %s", res.MIME)
	}
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{4000, 2000, 1024, 1024, 512},
		{2000, 4000, 1024, 512, 1024},
		{1024, 1024, 1024, 1024, 1024},
		{800, 600, 1024, 800, 600},
		{3000, 2000, 800, 800, 533},
		{5000, 1, 100, 100, 1},
	}

	for _, tt := range tests {
		w, h := Dimensions(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("Dimensions(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestIngestCorruptInput(t *testing.T) {
	raw := []byte("not an image")
	_, err := Ingest(context.Background(), raw, DefaultOptions(), land, "")

	var decErr *ImageDecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *ImageDecodeError, got %v", err)
	}
	if decErr.MIME == "" {
		t.Error("expected sniffed MIME type on error")
	}
	if string(raw) != "not an image" {
		t.Error("input was modified")
	}
}

func TestIngestTruncatedJPEG(t *testing.T) {
	data := createTestJPEG(200, 200)
	_, err := Ingest(context.Background(), data[:len(data)/3], DefaultOptions(), land, "")

	var decErr *ImageDecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *ImageDecodeError, got %v", err)
	}
	if decErr.MIME != "image/jpeg" {
		t.Errorf("MIME = %s, want image/jpeg", decErr.MIME)
	}
}

func TestIngestPartLabel(t *testing.T) {
	data := createTestJPEG(10, 10)
	ctx := context.Background()

	res, err := Ingest(ctx, data, DefaultOptions(), itEquipment, "Monitor")
	if err != nil {
		t.Fatalf("Ingest with part: %v", err)
	}
	if res.Photo.Part != "Monitor" {
		t.Errorf("part = %q, want Monitor", res.Photo.Part)
	}

	if _, err := Ingest(ctx, data, DefaultOptions(), itEquipment, ""); !errors.Is(err, model.ErrPartRequired) {
		t.Errorf("expected ErrPartRequired, got %v", err)
	}

	res, err = Ingest(ctx, data, DefaultOptions(), land, "Monitor")
	if err != nil {
		t.Fatalf("Ingest non-parts category with part: %v", err)
	}
	if res.Photo.Part != "" {
		t.Errorf("part label should be dropped, got %q", res.Photo.Part)
	}
}

func TestIngestPhotoURL(t *testing.T) {
	res, err := Ingest(context.Background(), createTestJPEG(10, 10), DefaultOptions(), land, "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	mime, data, err := ParseDataURL(res.Photo.URL)
	if err != nil {
		t.Fatalf("ParseDataURL: %v", err)
	}
	if mime != "image/jpeg" || !bytes.Equal(data, res.Data) {
		t.Error("photo URL does not reference the encoded bytes")
	}
}

func TestIngestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Ingest(ctx, createTestJPEG(10, 10), DefaultOptions(), land, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res != nil {
		t.Error("expected no result after cancellation")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		opts    Options
		wantErr bool
	}{
		{DefaultOptions(), false},
		{Options{MaxDimension: 800, Quality: 0.7}, false},
		{Options{MaxDimension: 800, Quality: 1}, false},
		{Options{MaxDimension: 0, Quality: 0.8}, true},
		{Options{MaxDimension: 800, Quality: 0}, true},
		{Options{MaxDimension: 800, Quality: 1.5}, true},
		{Options{MaxDimension: 800, Quality: 0.8, MaxPixels: -1}, true},
	}

	for _, tt := range tests {
		err := tt.opts.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.opts, err, tt.wantErr)
		}
	}
}

func TestProcessReader(t *testing.T) {
	res, err := Process(context.Background(), bytes.NewReader(createTestPNG(100, 100)), DefaultOptions())
	if err != nil {
		t.Fatalf("Process PNG: %v", err)
	}
	if len(res.Data) == 0 {
		t.Error("expected non-empty data")
	}
}

// withDimensions rewrites the IHDR size of a PNG and fixes its checksum, so
// only the header claims the new size.
func withDimensions(data []byte, w, h uint32) []byte {
	out := bytes.Clone(data)
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29.
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestIngestRejectsHugeHeader(t *testing.T) {
	raw := withDimensions(createTestPNG(4, 4), 20000, 20000)
	if len(raw) > 200 {
		t.Fatalf("test input is %d bytes, expected a tiny payload", len(raw))
	}

	_, err := Ingest(context.Background(), raw, DefaultOptions(), land, "")

	var decErr *ImageDecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *ImageDecodeError, got %v", err)
	}
	if !errors.Is(err, ErrTooManyPixels) {
		t.Errorf("expected ErrTooManyPixels, got %v", err)
	}
	if decErr.MIME != "image/png" {
		t.Errorf("MIME = %q, want image/png", decErr.MIME)
	}
}

func TestIngestPixelLimit(t *testing.T) {
	opts := Options{MaxDimension: 1024, Quality: 0.8, MaxPixels: 100}

	if _, err := Ingest(context.Background(), createTestPNG(10, 10), opts, land, ""); err != nil {
		t.Errorf("10x10 at limit 100: %v", err)
	}
	if _, err := Ingest(context.Background(), createTestPNG(11, 10), opts, land, ""); !errors.Is(err, ErrTooManyPixels) {
		t.Errorf("11x10 at limit 100: expected ErrTooManyPixels, got %v", err)
	}
}

func TestStorableMIME(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"image/jpeg", "image/jpeg"},
		{"image/png", "image/png"},
		{"image/webp", "image/webp"},
		{"text/html; charset=utf-8", "application/octet-stream"},
		{"image/svg+xml", "application/octet-stream"},
		{"text/xml; charset=utf-8", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := StorableMIME(tt.in); got != tt.want {
			t.Errorf("StorableMIME(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
