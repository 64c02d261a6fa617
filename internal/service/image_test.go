package service

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestCalculateMD5(t *testing.T) {
	got := calculateMD5([]byte("hello"))
	want := "5d41402abc4b2a76b9719d911017c592"
	if got != want {
		t.Errorf("calculateMD5 = %s, want %s", got, want)
	}
}

func TestGetImageDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}

	w, h, err := getImageDimensions(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 3 || h != 2 {
		t.Errorf("expected 3x2, got %dx%d", w, h)
	}
}

func TestGetImageDimensionsInvalid(t *testing.T) {
	if _, _, err := getImageDimensions([]byte("not an image")); err == nil {
		t.Error("expected error for undecodable bytes")
	}
}

func TestGetContentType(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"jpeg", "image/jpeg"},
		{"jpg", "image/jpeg"},
		{"png", "image/png"},
		{"gif", "image/gif"},
		{"webp", "image/webp"},
		{"tiff", "application/octet-stream"},
	}

	for _, tc := range tests {
		if got := getContentType(tc.format); got != tc.want {
			t.Errorf("getContentType(%q) = %q, want %q", tc.format, got, tc.want)
		}
	}
}
