package imaging

import (
	"bytes"
	"errors"
	"testing"
)

func TestDataURLRoundTrip(t *testing.T) {
	data := []byte{0xff, 0xd8, 0x00, 0x01}
	url := DataURL("image/jpeg", data)
	if !IsDataURL(url) {
		t.Fatalf("IsDataURL(%q) = false", url)
	}

	mime, got, err := ParseDataURL(url)
	if err != nil {
		t.Fatalf("ParseDataURL: %v", err)
	}
	if mime != "image/jpeg" || !bytes.Equal(got, data) {
		t.Errorf("got %s %v, want image/jpeg %v", mime, got, data)
	}
}

func TestParseDataURLRejects(t *testing.T) {
	for _, s := range []string{
		"https://example.com/a.jpg",
		"data:image/png,plain",
		"data:image/png;base64",
	} {
		if _, _, err := ParseDataURL(s); !errors.Is(err, ErrNotDataURL) {
			t.Errorf("ParseDataURL(%q) error = %v, want ErrNotDataURL", s, err)
		}
	}
}
