package observability

import "testing"

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/v1/scores/123/export.xlsx")
	want := "/api/v1/scores/{id}/export.xlsx"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}
}

func TestExtractResourceID(t *testing.T) {
	if id := extractResourceID("/api/v1/scores/456/export.xlsx", "scores"); id != 456 {
		t.Fatalf("expected 456, got %d", id)
	}
	if id := extractResourceID("/api/v1/answer-keys/7", "answer-keys"); id != 7 {
		t.Fatalf("expected 7, got %d", id)
	}
	if id := extractResourceID("/api/v1/answer-keys/template.json", "answer-keys"); id != 0 {
		t.Fatalf("expected 0 for non-numeric segment, got %d", id)
	}
}
