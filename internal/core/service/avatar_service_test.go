package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/socis/member-portal/internal/core/domain"
)

// 1x1 transparent PNG.
const pngBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func pngSize(t *testing.T) int64 {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(pngBase64)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return int64(len(raw))
}

func newAvatarSvc(blobs *stubBlobStore, orphans *stubCollector, cfg AvatarConfig) *avatarService {
	var collector OrphanCollector
	if orphans != nil {
		collector = orphans
	}
	return NewAvatarService(blobs, collector, cfg, zerolog.Nop()).(*avatarService)
}

func TestAvatarService_ReplaceImage_EmptyPayloadShortCircuits(t *testing.T) {
	blobs := newStubBlobStore()
	svc := newAvatarSvc(blobs, nil, AvatarConfig{})

	for _, payload := range []string{"", domain.DefaultImage} {
		ref, err := svc.ReplaceImage(context.Background(), stubBlobBase+"old.png", payload)
		if err != nil {
			t.Fatalf("expected no error for %q, got: %v", payload, err)
		}
		if ref != domain.DefaultImage {
			t.Errorf("expected default image, got %q", ref)
		}
	}
	if len(blobs.calls) != 0 {
		t.Errorf("expected no blob store calls, got: %v", blobs.calls)
	}
}

func TestAvatarService_ReplaceImage_CustomDefaultSentinel(t *testing.T) {
	blobs := newStubBlobStore()
	svc := newAvatarSvc(blobs, nil, AvatarConfig{DefaultImage: "/static/none.png"})

	ref, err := svc.ReplaceImage(context.Background(), "", "/static/none.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "/static/none.png" {
		t.Errorf("expected configured sentinel, got %q", ref)
	}
	if len(blobs.calls) != 0 {
		t.Errorf("expected no blob store calls, got: %v", blobs.calls)
	}
}

func TestAvatarService_ReplaceImage_TooLarge(t *testing.T) {
	blobs := newStubBlobStore()
	svc := newAvatarSvc(blobs, nil, AvatarConfig{})

	// Decodes to 5 MiB + 4 bytes.
	payload := strings.Repeat("AAAA", int(DefaultMaxImageBytes/3)+2)

	_, err := svc.ReplaceImage(context.Background(), stubBlobBase+"old.png", payload)
	if !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got: %v", err)
	}
	if len(blobs.calls) != 0 {
		t.Errorf("expected no delete or upload, got: %v", blobs.calls)
	}
}

func TestAvatarService_ReplaceImage_SizeBoundary(t *testing.T) {
	size := pngSize(t)

	blobs := newStubBlobStore()
	svc := newAvatarSvc(blobs, nil, AvatarConfig{MaxBytes: size})
	if _, err := svc.ReplaceImage(context.Background(), "", pngBase64); err != nil {
		t.Fatalf("expected payload of exactly MaxBytes to be accepted, got: %v", err)
	}

	blobs = newStubBlobStore()
	svc = newAvatarSvc(blobs, nil, AvatarConfig{MaxBytes: size - 1})
	if _, err := svc.ReplaceImage(context.Background(), "", pngBase64); !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge one byte over, got: %v", err)
	}
}

func TestAvatarService_ReplaceImage_UploadsThenDeletesOld(t *testing.T) {
	blobs := newStubBlobStore()
	svc := newAvatarSvc(blobs, nil, AvatarConfig{KeyPrefix: "avatars/"})

	old := stubBlobBase + "old.png"
	ref, err := svc.ReplaceImage(context.Background(), old, pngBase64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(ref, stubBlobBase+"avatars/") || !strings.HasSuffix(ref, ".png") {
		t.Errorf("unexpected ref: %q", ref)
	}
	if len(blobs.calls) != 2 {
		t.Fatalf("expected put then delete, got: %v", blobs.calls)
	}
	if !strings.HasPrefix(blobs.calls[0], "put:") || blobs.calls[1] != "delete:"+old {
		t.Errorf("unexpected call order: %v", blobs.calls)
	}
}

func TestAvatarService_ReplaceImage_UniqueKeys(t *testing.T) {
	blobs := newStubBlobStore()
	svc := newAvatarSvc(blobs, nil, AvatarConfig{})

	a, _ := svc.ReplaceImage(context.Background(), "", pngBase64)
	b, _ := svc.ReplaceImage(context.Background(), "", pngBase64)
	if a == b {
		t.Errorf("expected distinct keys, both were %q", a)
	}
}

func TestAvatarService_ReplaceImage_AcceptsDataURL(t *testing.T) {
	blobs := newStubBlobStore()
	svc := newAvatarSvc(blobs, nil, AvatarConfig{})

	ref, err := svc.ReplaceImage(context.Background(), "", "data:image/png;base64,"+pngBase64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blobs.count("put:") != 1 {
		t.Errorf("expected one upload, got: %v", blobs.calls)
	}
	if !strings.HasSuffix(ref, ".png") {
		t.Errorf("expected png extension, got %q", ref)
	}
}

func TestAvatarService_ReplaceImage_DecodeFailures(t *testing.T) {
	cases := map[string]string{
		"malformed base64": "!!!not-base64!!!",
		"not an image":     base64.StdEncoding.EncodeToString([]byte("hello, plain text")),
		"svg with script":  base64.StdEncoding.EncodeToString([]byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.cookie)</script></svg>`)),
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			blobs := newStubBlobStore()
			svc := newAvatarSvc(blobs, nil, AvatarConfig{})

			_, err := svc.ReplaceImage(context.Background(), stubBlobBase+"old.png", payload)
			if !errors.Is(err, domain.ErrDecodeFailed) {
				t.Fatalf("expected ErrDecodeFailed, got: %v", err)
			}
			if len(blobs.calls) != 0 {
				t.Errorf("expected no blob store calls, got: %v", blobs.calls)
			}
		})
	}
}

func TestAvatarService_ReplaceImage_UploadFailureKeepsOld(t *testing.T) {
	blobs := newStubBlobStore()
	blobs.putErr = errStub
	svc := newAvatarSvc(blobs, nil, AvatarConfig{})

	_, err := svc.ReplaceImage(context.Background(), stubBlobBase+"old.png", pngBase64)
	if !errors.Is(err, domain.ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got: %v", err)
	}
	if blobs.count("delete:") != 0 {
		t.Errorf("old blob must survive a failed upload, got: %v", blobs.calls)
	}
}

func TestAvatarService_ReplaceImage_DeleteFailureIsNonFatal(t *testing.T) {
	blobs := newStubBlobStore()
	blobs.deleteErr = errStub
	orphans := &stubCollector{}
	svc := newAvatarSvc(blobs, orphans, AvatarConfig{})

	old := stubBlobBase + "old.png"
	ref, err := svc.ReplaceImage(context.Background(), old, pngBase64)
	if err != nil {
		t.Fatalf("expected delete failure to be non-fatal, got: %v", err)
	}
	if ref == "" {
		t.Error("expected new ref")
	}
	if len(orphans.refs) != 1 || orphans.refs[0] != old {
		t.Errorf("expected old ref handed to collector, got: %v", orphans.refs)
	}
}

func TestAvatarService_Release_IgnoresDefaultAndForeign(t *testing.T) {
	blobs := newStubBlobStore()
	svc := newAvatarSvc(blobs, nil, AvatarConfig{})

	for _, ref := range []string{"", domain.DefaultImage, "https://lh3.googleusercontent.com/a/photo.jpg"} {
		if err := svc.Release(context.Background(), ref); err != nil {
			t.Errorf("Release(%q) returned %v", ref, err)
		}
	}
	if len(blobs.calls) != 0 {
		t.Errorf("expected no delete calls, got: %v", blobs.calls)
	}
}

func TestAvatarService_Release_Failure(t *testing.T) {
	blobs := newStubBlobStore()
	blobs.deleteErr = errStub
	svc := newAvatarSvc(blobs, nil, AvatarConfig{})

	err := svc.Release(context.Background(), stubBlobBase+"x.png")
	if !errors.Is(err, domain.ErrBlobDeleteFailed) {
		t.Errorf("expected ErrBlobDeleteFailed, got: %v", err)
	}
}

func TestDecodedLen(t *testing.T) {
	for _, raw := range []string{"", "a", "ab", "abc", "abcd", "hello world"} {
		enc := base64.StdEncoding.EncodeToString([]byte(raw))
		if got := decodedLen(enc); got != int64(len(raw)) {
			t.Errorf("decodedLen(%q) = %d, want %d", enc, got, len(raw))
		}
	}
}
