package media

import "testing"

func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
	}{
		{".jpg", FormatJPEG},
		{"JPEG", FormatJPEG},
		{".Jpg", FormatJPEG},
		{".png", FormatPNG},
		{".PNG", FormatPNG},
		{"webp", FormatWebP},
		{".WEBP", FormatWebP},
		{".gif", FormatUnknown},
		{".txt", FormatUnknown},
		{"", FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := FormatFromExtension(tt.ext); got != tt.want {
				t.Errorf("FormatFromExtension(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestNewImageFile(t *testing.T) {
	f, err := NewImageFile("/photos/holiday/IMG_0001.JPG")
	if err != nil {
		t.Fatalf("NewImageFile: %v", err)
	}
	if f.Format != FormatJPEG {
		t.Errorf("format = %v, want JPEG", f.Format)
	}

	if _, err := NewImageFile("/photos/notes.txt"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestFormatString(t *testing.T) {
	for f, want := range map[Format]string{
		FormatJPEG:    "JPEG",
		FormatPNG:     "PNG",
		FormatWebP:    "WebP",
		FormatUnknown: "Unknown",
	} {
		if got := f.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", f, got, want)
		}
	}
}
