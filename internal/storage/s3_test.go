package storage

import "testing"

func TestNormalizeExt(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"png", ".png"},
		{".png", ".png"},
		{".PNG", ".png"},
		{" jpg ", ".jpg"},
		{"", ""},
		{".", ""},
		{"../../../etc/passwd", ""},
		{"pn g", ""},
		{"webp", ".webp"},
	}

	for _, tc := range cases {
		if got := normalizeExt(tc.in); got != tc.want {
			t.Errorf("normalizeExt(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContentType(t *testing.T) {
	cases := []struct {
		ext  string
		want string
	}{
		{".png", "image/png"},
		{".jpg", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{".gif", "image/gif"},
		{".webp", "image/webp"},
		{".bin", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tc := range cases {
		if got := contentType(tc.ext); got != tc.want {
			t.Errorf("contentType(%q) = %q, want %q", tc.ext, got, tc.want)
		}
	}
}
