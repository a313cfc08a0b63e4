package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/metrics"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// MaxRemotePhotoSize bounds photos fetched over HTTP during export.
const MaxRemotePhotoSize = 32 << 20

// AddPhoto turns a raw capture into a photo of the given category. When the
// capture cannot be decoded the original bytes are kept as they are, so a
// capture is never lost. The photo is not attached to any item.
func (s *Service) AddPhoto(ctx context.Context, category, part string, raw []byte) (model.Photo, error) {
	info, err := s.lookup(category)
	if err != nil {
		return model.Photo{}, err
	}
	if len(raw) == 0 {
		metrics.Ingests.WithLabelValues(metrics.IngestRejected).Inc()
		return model.Photo{}, model.ErrEmptyPhoto
	}

	var data []byte
	var mime string

	res, err := imaging.Ingest(ctx, raw, s.opts, info, part)
	var decErr *imaging.ImageDecodeError
	switch {
	case err == nil:
		metrics.Ingests.WithLabelValues(metrics.IngestOK).Inc()
		data, mime, part = res.Data, res.MIME, res.Photo.Part
		slog.Debug("photo ingested", "category", category,
			"size", humanize.Bytes(uint64(len(raw))), "stored", humanize.Bytes(uint64(len(data))))

	case errors.As(err, &decErr):
		// Ingest resolves the part label before decoding, so it is valid here.
		part, _ = info.ResolvePart(part)
		metrics.Ingests.WithLabelValues(metrics.IngestFallback).Inc()
		data, mime = raw, imaging.StorableMIME(decErr.MIME)
		slog.Warn("storing photo unprocessed", "category", category, "mime", mime, "error", err)

	default:
		if ctx.Err() == nil {
			metrics.Ingests.WithLabelValues(metrics.IngestRejected).Inc()
		}
		return model.Photo{}, err
	}

	url, err := s.storePhoto(ctx, data, mime)
	if err != nil {
		return model.Photo{}, err
	}
	return model.Photo{URL: url, Part: part}, nil
}

func (s *Service) storePhoto(ctx context.Context, data []byte, mime string) (string, error) {
	if s.photos == nil {
		return imaging.DataURL(mime, data), nil
	}
	return s.photos.PutPhoto(ctx, data, mime)
}

// GetPhoto returns a photo from the blob store, or nil if it does not exist
// or the service keeps photos inline.
func (s *Service) GetPhoto(ctx context.Context, key string) (*store.Blob, error) {
	if s.photos == nil || !store.ValidKey(key) {
		return nil, nil
	}
	return s.photos.GetPhoto(ctx, key)
}

// ErrRemoteHost is returned for remote photo URLs outside the configured
// host list.
var ErrRemoteHost = errors.New("remote photo host not allowed")

// FetchPhoto dereferences a photo URL: an inline data: URL, a blob store URL
// or a remote http(s) URL on one of the configured hosts.
func (s *Service) FetchPhoto(ctx context.Context, rawURL string) ([]byte, string, error) {
	switch {
	case imaging.IsDataURL(rawURL):
		mime, data, err := imaging.ParseDataURL(rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("decoding data URL: %w", err)
		}
		return data, mime, nil

	case strings.HasPrefix(rawURL, store.PhotoURLPrefix):
		key, ok := store.KeyFromURL(rawURL)
		if !ok {
			return nil, "", fmt.Errorf("invalid photo URL %q", rawURL)
		}
		blob, err := s.GetPhoto(ctx, key)
		if err != nil {
			return nil, "", err
		}
		if blob == nil {
			return nil, "", fmt.Errorf("photo %s not found", key)
		}
		return blob.Data, blob.MIME, nil

	case strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "https://"):
		return s.fetchRemote(ctx, rawURL)

	default:
		return nil, "", fmt.Errorf("unsupported photo URL %q", rawURL)
	}
}

// checkRemote allows http(s) URLs on the configured hosts only. It also
// guards every redirect the client follows.
func (s *Service) checkRemote(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !s.remoteHosts[strings.ToLower(u.Hostname())] {
		return fmt.Errorf("%w: %q", ErrRemoteHost, u.Hostname())
	}
	return nil
}

func (s *Service) fetchRemote(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing photo URL: %w", err)
	}
	if err := s.checkRemote(u); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching photo: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxRemotePhotoSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxRemotePhotoSize {
		return nil, "", fmt.Errorf("photo exceeds %s", humanize.Bytes(MaxRemotePhotoSize))
	}
	return data, imaging.SniffMIME(data), nil
}
