package gcsdocs

import "testing"

func TestFilenameFromURI(t *testing.T) {
	s := NewGCSStore()
	tests := []struct {
		in, want string
	}{
		{"gs://bucket/folder/file.pdf", "file.pdf"},
		{"gs://bucket/file.pdf", "file.pdf"},
		{"gs://bucket-only", "bucket-only"},
	}
	for _, tt := range tests {
		if got := s.FilenameFromURI(tt.in); got != tt.want {
			t.Errorf("FilenameFromURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitURI(t *testing.T) {
	bucket, object, err := splitURI("gs://uploads/2025/inv.pdf")
	if err != nil {
		t.Fatalf("splitURI: %v", err)
	}
	if bucket != "uploads" || object != "2025/inv.pdf" {
		t.Errorf("splitURI = %q, %q", bucket, object)
	}

	for _, bad := range []string{"http://x/y", "gs://bucket", "gs://bucket/"} {
		if _, _, err := splitURI(bad); err == nil {
			t.Errorf("splitURI(%q) should fail", bad)
		}
	}
}

func TestTextObjectName(t *testing.T) {
	if got := TextObjectName("2025/inv.pdf"); got != "text/2025/inv.pdf.txt" {
		t.Errorf("TextObjectName = %q", got)
	}
}
