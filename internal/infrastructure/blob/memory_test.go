package blob

import (
	"context"
	"testing"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	m := NewMemoryStore("/blobs/")
	ctx := context.Background()

	ref, err := m.Put(ctx, "a.png", []byte{1, 2, 3}, "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref != "/blobs/a.png" {
		t.Errorf("unexpected ref %q", ref)
	}
	if !m.Owns(ref) {
		t.Error("expected store to own its refs")
	}

	data, ct, ok := m.Get("a.png")
	if !ok || len(data) != 3 || ct != "image/png" {
		t.Errorf("unexpected object: %v %q %v", data, ct, ok)
	}

	if err := m.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if m.Len() != 0 {
		t.Error("expected store to be empty")
	}
	if err := m.Delete(ctx, ref); err != nil {
		t.Errorf("expected deleting a missing object to succeed, got: %v", err)
	}
	if err := m.Delete(ctx, "http://elsewhere.test/a.png"); err == nil {
		t.Error("expected error deleting a foreign ref")
	}
}

func TestMemoryStore_CopiesInput(t *testing.T) {
	m := NewMemoryStore("/blobs")
	buf := []byte{1}
	if _, err := m.Put(context.Background(), "k", buf, "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	buf[0] = 9

	data, _, _ := m.Get("k")
	if data[0] != 1 {
		t.Error("stored object must not alias the caller's buffer")
	}
}

func TestKeyFromRef(t *testing.T) {
	cases := []struct {
		ref  string
		key  string
		owns bool
	}{
		{"http://minio:9000/avatars/abc.png", "abc.png", true},
		{"http://minio:9000/avatars/", "", false},
		{"http://minio:9000/avatars-other/abc.png", "", false},
		{"https://lh3.googleusercontent.com/a/photo", "", false},
		{"/images/default-pfp.png", "", false},
	}
	for _, tc := range cases {
		key, ok := keyFromRef("http://minio:9000/avatars", tc.ref)
		if ok != tc.owns || key != tc.key {
			t.Errorf("keyFromRef(%q) = %q, %v; want %q, %v", tc.ref, key, ok, tc.key, tc.owns)
		}
	}
}
