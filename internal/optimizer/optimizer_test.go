package optimizer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"image-optimizer-go/internal/codec"
	"image-optimizer-go/internal/logger"
	"image-optimizer-go/internal/media"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

// stubEncoder writes a fixed number of bytes, or fails after a partial write.
type stubEncoder struct {
	fs     afero.Fs
	format media.Format
	size   int
	fail   bool

	mu   sync.Mutex
	seen []codec.PixelSource
}

func (e *stubEncoder) Format() media.Format { return e.format }

func (e *stubEncoder) Encode(src codec.PixelSource, dst string) error {
	e.mu.Lock()
	e.seen = append(e.seen, src)
	e.mu.Unlock()

	if e.fail {
		_ = afero.WriteFile(e.fs, dst, []byte("partial"), 0644)
		return &codec.EncodeError{Format: e.format, Path: src.Origin, Kind: codec.KindCodec, Err: errors.New("encoder exploded")}
	}
	return afero.WriteFile(e.fs, dst, bytes.Repeat([]byte{'o'}, e.size), 0644)
}

type stubCodecs struct {
	encoders map[media.Format]*stubEncoder
	decoded  image.Image
}

func (c *stubCodecs) Encoder(f media.Format) (codec.Encoder, error) {
	enc, ok := c.encoders[f]
	if !ok {
		return nil, codec.ErrUnsupportedFormat
	}
	return enc, nil
}

func (c *stubCodecs) Decode(path string) (image.Image, error) {
	if c.decoded == nil {
		return nil, fmt.Errorf("no pixels for %s", path)
	}
	return c.decoded, nil
}

func newStubs(fs afero.Fs, size int) *stubCodecs {
	return &stubCodecs{encoders: map[media.Format]*stubEncoder{
		media.FormatJPEG: {fs: fs, format: media.FormatJPEG, size: size},
		media.FormatPNG:  {fs: fs, format: media.FormatPNG, size: size},
		media.FormatWebP: {fs: fs, format: media.FormatWebP, size: size},
	}}
}

func writeBytes(t *testing.T, fs afero.Fs, path string, n int) []byte {
	t.Helper()
	data := bytes.Repeat([]byte{'i'}, n)
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return data
}

func imageFile(t *testing.T, path string) media.ImageFile {
	t.Helper()
	f, err := media.NewImageFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func assertContent(t *testing.T, fs afero.Fs, path string, want []byte) {
	t.Helper()
	got, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("%s: content changed (%d bytes, want %d)", path, len(got), len(want))
	}
}

func assertMissing(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if ok, _ := afero.Exists(fs, path); ok {
		t.Errorf("%s exists, want it removed", path)
	}
}

// assertNoStaging fails when a staging file is left in dir.
func assertNoStaging(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	matches, err := afero.Glob(fs, filepath.Join(dir, "*.tmp.*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) > 0 {
		t.Errorf("staging files left behind: %v", matches)
	}
}

// writeTrackingFs records every path opened for writing.
type writeTrackingFs struct {
	afero.Fs

	mu      sync.Mutex
	written map[string]bool
}

func newWriteTrackingFs() *writeTrackingFs {
	return &writeTrackingFs{Fs: afero.NewMemMapFs(), written: map[string]bool{}}
}

func (f *writeTrackingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		f.mu.Lock()
		f.written[name] = true
		f.mu.Unlock()
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *writeTrackingFs) Create(name string) (afero.File, error) {
	return f.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func TestOptimize_InPlaceShrinks(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeBytes(t, fs, "/photos/a.jpg", 10000)

	opt := New(fs, newStubs(fs, 8000), Request{InputRoot: "/photos"}, logger.Discard())
	got, err := opt.Optimize(imageFile(t, "/photos/a.jpg"))
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	want := Outcome{
		Path:          "/photos/a.jpg",
		OutputPath:    "/photos/a.jpg",
		OriginalSize:  10000,
		OptimizedSize: 8000,
		Saved:         2000,
		Status:        StatusShrunk,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Outcome mismatch (-want +got):\n%s", diff)
	}
	assertContent(t, fs, "/photos/a.jpg", bytes.Repeat([]byte{'o'}, 8000))
	assertNoStaging(t, fs, "/photos")
}

func TestOptimize_InPlaceLargerKeepsOriginal(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := writeBytes(t, fs, "/photos/icon.png", 500)

	opt := New(fs, newStubs(fs, 600), Request{InputRoot: "/photos"}, logger.Discard())
	got, err := opt.Optimize(imageFile(t, "/photos/icon.png"))
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got.Status != StatusNotSmaller || got.Saved != 0 {
		t.Errorf("Outcome = %+v, want not smaller with 0 saved", got)
	}
	assertContent(t, fs, "/photos/icon.png", original)
	assertNoStaging(t, fs, "/photos")
}

func TestOptimize_EqualSizeIsNotSmaller(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := writeBytes(t, fs, "/photos/same.webp", 700)

	opt := New(fs, newStubs(fs, 700), Request{InputRoot: "/photos"}, logger.Discard())
	got, err := opt.Optimize(imageFile(t, "/photos/same.webp"))
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got.Status != StatusNotSmaller {
		t.Errorf("Status = %s, want not_smaller", got.Status)
	}
	assertContent(t, fs, "/photos/same.webp", original)
}

func TestOptimize_EncodeFailureLeavesOriginal(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := writeBytes(t, fs, "/photos/a.jpg", 1000)

	stubs := newStubs(fs, 10)
	stubs.encoders[media.FormatJPEG].fail = true
	opt := New(fs, stubs, Request{InputRoot: "/photos"}, logger.Discard())

	_, err := opt.Optimize(imageFile(t, "/photos/a.jpg"))
	var encErr *codec.EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("err = %v, want EncodeError", err)
	}
	assertContent(t, fs, "/photos/a.jpg", original)
	assertNoStaging(t, fs, "/photos")
}

func TestOptimize_SeparateOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeBytes(t, fs, "/in/sub/big.jpg", 5000)
	small := writeBytes(t, fs, "/in/sub/small.png", 100)

	stubs := newStubs(fs, 1000)
	opt := New(fs, stubs, Request{InputRoot: "/in", OutputDir: "/out"}, logger.Discard())

	got, err := opt.Optimize(imageFile(t, "/in/sub/big.jpg"))
	if err != nil {
		t.Fatalf("Optimize big: %v", err)
	}
	if got.OutputPath != "/out/sub/big.jpg" || got.Saved != 4000 {
		t.Errorf("big Outcome = %+v", got)
	}
	assertContent(t, fs, "/out/sub/big.jpg", bytes.Repeat([]byte{'o'}, 1000))
	assertContent(t, fs, "/in/sub/big.jpg", bytes.Repeat([]byte{'i'}, 5000))

	got, err = opt.Optimize(imageFile(t, "/in/sub/small.png"))
	if err != nil {
		t.Fatalf("Optimize small: %v", err)
	}
	if got.Status != StatusNotSmaller {
		t.Errorf("small Status = %s", got.Status)
	}
	assertContent(t, fs, "/out/sub/small.png", small)
	assertNoStaging(t, fs, "/out/sub")
	assertNoStaging(t, fs, "/in/sub")
}

func TestOptimize_TmpNamedNeighbourSurvives(t *testing.T) {
	for _, size := range []int{200, 600} {
		t.Run(fmt.Sprintf("encoded=%d", size), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeBytes(t, fs, "/p/a.jpg", 500)
			neighbour := writeBytes(t, fs, "/p/a.tmp.jpg", 300)

			opt := New(fs, newStubs(fs, size), Request{InputRoot: "/p"}, logger.Discard())
			if _, err := opt.Optimize(imageFile(t, "/p/a.jpg")); err != nil {
				t.Fatalf("Optimize: %v", err)
			}

			assertContent(t, fs, "/p/a.tmp.jpg", neighbour)
			entries, err := afero.ReadDir(fs, "/p")
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 2 {
				t.Errorf("directory holds %d entries, want a.jpg and a.tmp.jpg", len(entries))
			}
		})
	}
}

func TestOptimize_SeparateOutputTmpNamedInput(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeBytes(t, fs, "/in/a.jpg", 500)
	writeBytes(t, fs, "/in/a.tmp.jpg", 5000)

	stubs := newStubs(fs, 1000)
	opt := New(fs, stubs, Request{InputRoot: "/in", OutputDir: "/out"}, logger.Discard())

	if _, err := opt.Optimize(imageFile(t, "/in/a.tmp.jpg")); err != nil {
		t.Fatalf("Optimize a.tmp.jpg: %v", err)
	}
	got, err := opt.Optimize(imageFile(t, "/in/a.jpg"))
	if err != nil {
		t.Fatalf("Optimize a.jpg: %v", err)
	}
	if got.Status != StatusNotSmaller {
		t.Errorf("a.jpg Status = %s, want not_smaller", got.Status)
	}

	assertContent(t, fs, "/out/a.tmp.jpg", bytes.Repeat([]byte{'o'}, 1000))
	assertContent(t, fs, "/out/a.jpg", bytes.Repeat([]byte{'i'}, 500))
}

func TestOptimize_OutputOnlyAppearsByRename(t *testing.T) {
	fs := newWriteTrackingFs()
	writeBytes(t, fs, "/in/big.jpg", 5000)
	small := writeBytes(t, fs, "/in/small.png", 100)

	opt := New(fs, newStubs(fs, 1000), Request{InputRoot: "/in", OutputDir: "/out"}, logger.Discard())
	for _, path := range []string{"/in/big.jpg", "/in/small.png"} {
		if _, err := opt.Optimize(imageFile(t, path)); err != nil {
			t.Fatalf("Optimize %s: %v", path, err)
		}
	}

	for _, final := range []string{"/out/big.jpg", "/out/small.png"} {
		if fs.written[final] {
			t.Errorf("%s was written directly instead of renamed into place", final)
		}
	}
	assertContent(t, fs, "/out/small.png", small)
	assertNoStaging(t, fs, "/out")
}

func TestOptimize_KeepsPermissions(t *testing.T) {
	tests := []struct {
		name    string
		outDir  bool
		encoded int
		perm    os.FileMode
	}{
		{"in place shrunk private", false, 100, 0600},
		{"in place shrunk group readable", false, 100, 0640},
		{"separate shrunk", true, 100, 0640},
		{"separate copied original", true, 5000, 0640},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewOsFs()
			dir := t.TempDir()
			in := filepath.Join(dir, "in")
			path := filepath.Join(in, "photo.jpg")
			if err := os.MkdirAll(in, 0755); err != nil {
				t.Fatal(err)
			}
			writeBytes(t, fs, path, 1000)
			if err := os.Chmod(path, tt.perm); err != nil {
				t.Fatal(err)
			}

			req := Request{InputRoot: in}
			if tt.outDir {
				req.OutputDir = filepath.Join(dir, "out")
			}
			got, err := New(fs, newStubs(fs, tt.encoded), req, logger.Discard()).Optimize(imageFile(t, path))
			if err != nil {
				t.Fatalf("Optimize: %v", err)
			}

			info, err := os.Stat(got.OutputPath)
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode().Perm() != tt.perm {
				t.Errorf("%s mode = %v, want %v", got.OutputPath, info.Mode().Perm(), tt.perm)
			}
		})
	}
}

func TestOptimize_Backup(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := writeBytes(t, fs, "/p/a.jpg", 3000)

	opt := New(fs, newStubs(fs, 1000), Request{InputRoot: "/p", Backup: true}, logger.Discard())
	if _, err := opt.Optimize(imageFile(t, "/p/a.jpg")); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	assertContent(t, fs, "/p/a.jpg.bak", original)
}

func TestOptimize_BackupIgnoredForSeparateOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeBytes(t, fs, "/p/a.jpg", 3000)

	opt := New(fs, newStubs(fs, 1000), Request{InputRoot: "/p", OutputDir: "/o", Backup: true}, logger.Discard())
	if _, err := opt.Optimize(imageFile(t, "/p/a.jpg")); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	assertMissing(t, fs, "/p/a.jpg.bak")
}

func TestOptimize_Resize(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeBytes(t, fs, "/p/wide.jpg", 3000)

	stubs := newStubs(fs, 1000)
	stubs.decoded = image.NewNRGBA(image.Rect(0, 0, 1200, 800))
	opt := New(fs, stubs, Request{InputRoot: "/p", MaxSize: 600}, logger.Discard())

	if _, err := opt.Optimize(imageFile(t, "/p/wide.jpg")); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	seen := stubs.encoders[media.FormatJPEG].seen
	if len(seen) != 1 {
		t.Fatalf("encoder called %d times", len(seen))
	}
	img, ok := seen[0].Decoded()
	if !ok {
		t.Fatal("encoder did not receive decoded pixels")
	}
	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 400 {
		t.Errorf("resized to %v, want 600x400", b)
	}
}

func TestOptimize_NoResizeReadsFromDisk(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeBytes(t, fs, "/p/a.png", 3000)

	stubs := newStubs(fs, 1000)
	opt := New(fs, stubs, Request{InputRoot: "/p"}, logger.Discard())
	if _, err := opt.Optimize(imageFile(t, "/p/a.png")); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if _, ok := stubs.encoders[media.FormatPNG].seen[0].Decoded(); ok {
		t.Error("encoder received decoded pixels without max size")
	}
}

func TestOptimize_DegenerateResize(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := writeBytes(t, fs, "/p/strip.png", 3000)

	stubs := newStubs(fs, 1000)
	stubs.decoded = image.NewNRGBA(image.Rect(0, 0, 4000, 1))
	opt := New(fs, stubs, Request{InputRoot: "/p", MaxSize: 100}, logger.Discard())

	if _, err := opt.Optimize(imageFile(t, "/p/strip.png")); !errors.Is(err, ErrDegenerateResize) {
		t.Fatalf("err = %v, want ErrDegenerateResize", err)
	}
	assertContent(t, fs, "/p/strip.png", original)
}

func TestOptimize_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	opt := New(fs, newStubs(fs, 10), Request{InputRoot: "/p"}, logger.Discard())
	if _, err := opt.Optimize(media.ImageFile{Path: "/p/gone.jpg", Format: media.FormatJPEG}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRequest_WorkerCount(t *testing.T) {
	if n := (Request{}).WorkerCount(); n != 1 {
		t.Errorf("sequential WorkerCount = %d, want 1", n)
	}
	if n := (Request{Parallel: true, Workers: 3}).WorkerCount(); n != 3 {
		t.Errorf("WorkerCount = %d, want 3", n)
	}
	if n := (Request{Parallel: true}).WorkerCount(); n < 1 {
		t.Errorf("WorkerCount = %d, want >= 1", n)
	}
}
