package updater

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"image-optimizer-go/internal/logger"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"1.0.0", "1.0.1", true},
		{"1.0.0", "1.1.0", true},
		{"1.0.0", "2.0.0", true},
		{"1.0.1", "1.0.0", false},
		{"1.1.0", "1.0.0", false},
		{"2.0.0", "1.0.0", false},
		{"1.0.0", "1.0.0", false},
		{"v1.0.0", "v1.0.1", true},
		{"1.0.0", "v1.0.1", true},
		{"v1.0.0", "1.0.1", true},
		{"1.0", "1.0.1", true},
		{"1.0.1", "1.0", false},
		{"1.0", "1.0", false},
		{"1.9.0", "1.10.0", true},
	}
	for _, tt := range tests {
		got, err := CompareVersions(tt.current, tt.latest)
		if err != nil {
			t.Errorf("CompareVersions(%q, %q) error: %v", tt.current, tt.latest, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
		}
	}
}

func TestCompareVersions_Invalid(t *testing.T) {
	for _, pair := range [][2]string{
		{"1.0.0", "1.0.beta"},
		{"abc", "1.0.0"},
		{"1..0", "1.0.0"},
		{"1.0.0", ""},
	} {
		if _, err := CompareVersions(pair[0], pair[1]); err == nil {
			t.Errorf("CompareVersions(%q, %q) succeeded, want error", pair[0], pair[1])
		}
	}
}

func TestTargetFor(t *testing.T) {
	got, err := targetFor("darwin", "arm64")
	if err != nil || got != "aarch64-apple-darwin" {
		t.Errorf("targetFor(darwin, arm64) = %q, %v", got, err)
	}
	if _, err := targetFor("plan9", "386"); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("err = %v, want ErrUnsupportedPlatform", err)
	}
}

func TestWithExtension(t *testing.T) {
	tests := map[string]string{
		"/usr/local/bin/image-optimizer":     "/usr/local/bin/image-optimizer.bak",
		`C:\tools\image-optimizer.exe`:       `C:\tools\image-optimizer.bak`,
		"/opt/image-optimizer-1.2/optimizer": "/opt/image-optimizer-1.2/optimizer.bak",
	}
	for in, want := range tests {
		if got := withExtension(in, ".bak"); got != want {
			t.Errorf("withExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func newReleaseServer(t *testing.T, tag string, binary []byte) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/tool/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "image-optimizer/") {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(Release{
			TagName: tag,
			Assets: []Asset{
				{Name: AssetName("x86_64-pc-windows-msvc"), BrowserDownloadURL: srv.URL + "/download/windows"},
				{Name: AssetName("x86_64-unknown-linux-gnu"), BrowserDownloadURL: srv.URL + "/download/linux"},
			},
		})
	})
	mux.HandleFunc("/download/linux", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(binary)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestUpdate_InstallsNewerRelease(t *testing.T) {
	srv := newReleaseServer(t, "v1.2.0", []byte("new binary"))
	exe := filepath.Join(t.TempDir(), "image-optimizer")
	if err := os.WriteFile(exe, []byte("old binary"), 0755); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	u := New(Options{
		APIURL:         srv.URL,
		Repository:     "owner/tool",
		CurrentVersion: "1.1.3",
		Executable:     exe,
		Target:         "x86_64-unknown-linux-gnu",
		Out:            &out,
		Logger:         logger.Discard(),
	})
	updated, err := u.Update(context.Background())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated {
		t.Fatal("Update reported no change")
	}

	if data, _ := os.ReadFile(exe); string(data) != "new binary" {
		t.Errorf("executable = %q", data)
	}
	if data, _ := os.ReadFile(exe + ".bak"); string(data) != "old binary" {
		t.Errorf("backup = %q", data)
	}
	if _, err := os.Stat(exe + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary binary left behind: %v", err)
	}
	info, _ := os.Stat(exe)
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
	if !strings.Contains(out.String(), "Successfully updated to v1.2.0!") {
		t.Errorf("output = %q", out.String())
	}
}

func TestUpdate_AlreadyLatest(t *testing.T) {
	srv := newReleaseServer(t, "v1.2.0", nil)
	exe := filepath.Join(t.TempDir(), "image-optimizer")
	_ = os.WriteFile(exe, []byte("current"), 0755)

	var out bytes.Buffer
	u := New(Options{APIURL: srv.URL, Repository: "owner/tool", CurrentVersion: "1.2.0",
		Executable: exe, Target: "x86_64-unknown-linux-gnu", Out: &out, Logger: logger.Discard()})
	updated, err := u.Update(context.Background())
	if err != nil || updated {
		t.Fatalf("Update = %v, %v; want false, nil", updated, err)
	}
	if !strings.Contains(out.String(), "already running the latest version") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(exe + ".bak"); !os.IsNotExist(err) {
		t.Error("backup created without an update")
	}
}

func TestUpdate_MissingAsset(t *testing.T) {
	srv := newReleaseServer(t, "v9.0.0", nil)
	u := New(Options{APIURL: srv.URL, Repository: "owner/tool", CurrentVersion: "1.0.0",
		Executable: filepath.Join(t.TempDir(), "x"), Target: "aarch64-apple-darwin",
		Out: &bytes.Buffer{}, Logger: logger.Discard()})
	if _, err := u.Update(context.Background()); err == nil || !strings.Contains(err.Error(), "no binary found") {
		t.Errorf("err = %v, want missing asset error", err)
	}
}

func TestLatestRelease_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()

	u := New(Options{APIURL: srv.URL, Repository: "owner/tool", CurrentVersion: "1.0.0", Logger: logger.Discard()})
	if _, err := u.LatestRelease(context.Background()); err == nil {
		t.Error("expected error for 403")
	}
}
