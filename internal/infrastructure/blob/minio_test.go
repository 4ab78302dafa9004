package blob

import (
	"encoding/json"
	"testing"
)

func TestPublicReadPolicy(t *testing.T) {
	raw, err := publicReadPolicy("avatars")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc bucketPolicy
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("invalid policy json %q: %v", raw, err)
	}
	if doc.Version != "2012-10-17" || len(doc.Statement) != 1 {
		t.Fatalf("unexpected policy: %s", raw)
	}

	st := doc.Statement[0]
	if st.Effect != "Allow" {
		t.Errorf("expected Allow, got %q", st.Effect)
	}
	if len(st.Principal["AWS"]) != 1 || st.Principal["AWS"][0] != "*" {
		t.Errorf("expected anonymous principal, got %v", st.Principal)
	}
	if len(st.Action) != 1 || st.Action[0] != "s3:GetObject" {
		t.Errorf("expected only s3:GetObject, got %v", st.Action)
	}
	if len(st.Resource) != 1 || st.Resource[0] != "arn:aws:s3:::avatars/*" {
		t.Errorf("expected object resource, got %v", st.Resource)
	}
}
