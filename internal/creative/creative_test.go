package creative

import "testing"

func TestContentHashOfIsDeterministic(t *testing.T) {
	a := contentHashOf("hello", "https://example.com/x.jpg")
	b := contentHashOf("hello", "https://example.com/x.jpg")
	if a != b {
		t.Fatalf("contentHashOf is not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("contentHashOf len = %d, want 64 (hex sha256)", len(a))
	}
}

func TestContentHashOfDetectsEdits(t *testing.T) {
	original := contentHashOf("buy our widget", "https://example.com/a.jpg")
	edited := contentHashOf("buy our BETTER widget", "https://example.com/a.jpg")
	if original == edited {
		t.Fatal("expected different hashes for different text")
	}
}

func TestContentHashOfEmptyMedia(t *testing.T) {
	withMedia := contentHashOf("text", "url")
	withoutMedia := contentHashOf("text", "")
	if withMedia == withoutMedia {
		t.Fatal("expected media url to affect the hash")
	}
}
