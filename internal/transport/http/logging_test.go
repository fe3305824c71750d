package http

import (
	"strings"
	"testing"
)

func TestSanitizeBodyRedactsCredentialKeys(t *testing.T) {
	body := []byte(`{
		"email": "a@example.com",
		"password": "hunter2-hunter2",
		"new_password": "hunter3-hunter3",
		"code": "482913",
		"nested": {"id_token": "eyJabc", "note": "keep me"}
	}`)

	sanitized, ok := sanitizeBody(body).(map[string]any)
	if !ok {
		t.Fatalf("expected a map, got %T", sanitizeBody(body))
	}
	if sanitized["email"] != "a@example.com" {
		t.Fatalf("plain field altered: %v", sanitized["email"])
	}
	for _, key := range []string{"password", "new_password", "code"} {
		if sanitized[key] != "redacted" {
			t.Fatalf("expected %q redacted, got %v", key, sanitized[key])
		}
	}
	nested, ok := sanitized["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map, got %T", sanitized["nested"])
	}
	if nested["id_token"] != "redacted" {
		t.Fatalf("expected nested token redacted, got %v", nested["id_token"])
	}
	if nested["note"] != "keep me" {
		t.Fatalf("nested plain field altered: %v", nested["note"])
	}
}

func TestSanitizeBodyNonJSON(t *testing.T) {
	if got := sanitizeBody([]byte("plain text body")); got != "non-json" {
		t.Fatalf("expected non-json marker, got %v", got)
	}
	if got := sanitizeBody(nil); got != nil {
		t.Fatalf("expected nil for empty body, got %v", got)
	}
}

func TestClampStringTruncatesLongValues(t *testing.T) {
	long := strings.Repeat("x", maxLoggedBody+100)
	got := clampString(long)
	if len(got) > maxLoggedBody+len("...(truncated)") {
		t.Fatalf("expected truncation, got %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "...(truncated)") {
		t.Fatal("expected truncation marker")
	}
}
