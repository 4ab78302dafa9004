package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/core/ports"
	"github.com/socis/member-portal/internal/pkg/metrics"
)

// DefaultMaxImageBytes is the largest decoded avatar accepted (5 MiB).
const DefaultMaxImageBytes int64 = 5 * 1024 * 1024

// avatarTypes are the accepted avatar formats. Vector formats such as SVG
// can carry script and are refused.
var avatarTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// OrphanCollector takes blob references whose deletion failed and retries
// them in the background.
type OrphanCollector interface {
	Collect(ref string)
}

// AvatarConfig tunes the avatar pipeline.
type AvatarConfig struct {
	DefaultImage string
	MaxBytes     int64
	KeyPrefix    string
}

type avatarService struct {
	blobs   ports.BlobStore
	orphans OrphanCollector
	cfg     AvatarConfig
	log     zerolog.Logger
}

// NewAvatarService returns an AvatarService implementation. orphans may be
// nil, in which case failed deletions are only logged.
func NewAvatarService(blobs ports.BlobStore, orphans OrphanCollector, cfg AvatarConfig, log zerolog.Logger) ports.AvatarService {
	if cfg.DefaultImage == "" {
		cfg.DefaultImage = domain.DefaultImage
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxImageBytes
	}
	return &avatarService{
		blobs:   blobs,
		orphans: orphans,
		cfg:     cfg,
		log:     log,
	}
}

func (s *avatarService) IsDefault(ref string) bool {
	return domain.IsDefaultImage(ref, s.cfg.DefaultImage)
}

// ReplaceImage stores payload as a new avatar and returns its public URL.
// The superseded blob is deleted only after the new one is stored, and a
// failure to delete it does not fail the call. An empty or default payload
// returns the default image and leaves existingImageRef alone.
func (s *avatarService) ReplaceImage(ctx context.Context, existingImageRef, payload string) (string, error) {
	url, err := s.Upload(ctx, payload)
	if err != nil {
		return "", err
	}
	if s.IsDefault(url) || existingImageRef == url {
		return url, nil
	}

	if err := s.Release(ctx, existingImageRef); err != nil {
		s.log.Warn().Err(err).Str("ref", existingImageRef).Msg("failed to delete previous avatar")
	}
	return url, nil
}

// Upload validates payload and stores it under a fresh key.
func (s *avatarService) Upload(ctx context.Context, payload string) (string, error) {
	// 1. No file means the default avatar.
	if s.IsDefault(payload) {
		metrics.AvatarUploadsTotal.WithLabelValues("default").Inc()
		return s.cfg.DefaultImage, nil
	}

	// 2. Size check on the encoded text, before decoding anything.
	encoded := stripDataURL(payload)
	if decodedLen(encoded) > s.cfg.MaxBytes {
		metrics.AvatarUploadsTotal.WithLabelValues("too_large").Inc()
		return "", fmt.Errorf("upload image: %w", domain.ErrPayloadTooLarge)
	}

	// 3. Decode and make sure it is a raster image.
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		metrics.AvatarUploadsTotal.WithLabelValues("decode_failed").Inc()
		return "", fmt.Errorf("upload image: %w: %w", domain.ErrDecodeFailed, err)
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), avatarTypes...) {
		metrics.AvatarUploadsTotal.WithLabelValues("decode_failed").Inc()
		return "", fmt.Errorf("upload image: %w (detected %s)", domain.ErrDecodeFailed, mt.String())
	}

	// 4. Upload under a fresh key.
	key := s.cfg.KeyPrefix + uuid.NewString() + mt.Extension()
	url, err := s.blobs.Put(ctx, key, data, mt.String())
	if err != nil {
		metrics.AvatarUploadsTotal.WithLabelValues("upload_failed").Inc()
		return "", fmt.Errorf("upload image: %w: %w", domain.ErrUploadFailed, err)
	}
	metrics.AvatarUploadsTotal.WithLabelValues("uploaded").Inc()
	metrics.AvatarUploadBytes.Observe(float64(len(data)))

	s.log.Debug().Str("key", key).Int("bytes", len(data)).Str("content_type", mt.String()).Msg("avatar uploaded")
	return url, nil
}

// Release deletes the blob behind ref. Default and foreign references are
// ignored. A failed deletion is handed to the orphan collector.
func (s *avatarService) Release(ctx context.Context, ref string) error {
	if s.IsDefault(ref) || !s.blobs.Owns(ref) {
		return nil
	}

	if err := s.blobs.Delete(ctx, ref); err != nil {
		metrics.BlobCleanupTotal.WithLabelValues("failed").Inc()
		if s.orphans != nil {
			s.orphans.Collect(ref)
		}
		return fmt.Errorf("release image: %w: %w", domain.ErrBlobDeleteFailed, err)
	}

	metrics.BlobCleanupTotal.WithLabelValues("deleted").Inc()
	return nil
}

// stripDataURL removes a "data:<mime>;base64," prefix if present.
func stripDataURL(payload string) string {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "data:") {
		return payload
	}
	if i := strings.Index(payload, ","); i >= 0 {
		return payload[i+1:]
	}
	return payload
}

// decodedLen returns the number of bytes the base64 text decodes to.
func decodedLen(encoded string) int64 {
	n := int64(len(encoded))
	if n == 0 {
		return 0
	}
	padding := int64(0)
	if strings.HasSuffix(encoded, "==") {
		padding = 2
	} else if strings.HasSuffix(encoded, "=") {
		padding = 1
	}
	return n*3/4 - padding
}
