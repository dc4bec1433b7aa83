package metadata

import (
	"fmt"
	"os/exec"
	"sort"

	"github.com/barasher/go-exiftool"
)

// ExiftoolAvailable reports whether the exiftool binary is on PATH.
func ExiftoolAvailable() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}

// Tag is one metadata field reported by exiftool.
type Tag struct {
	Name  string
	Value interface{}
}

// ReadAllTags returns every tag exiftool reports for path, sorted by name.
func ReadAllTags(path string) ([]Tag, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	defer et.Close()

	files := et.ExtractMetadata(path)
	if len(files) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata for %s", path)
	}
	if files[0].Err != nil {
		return nil, files[0].Err
	}

	tags := make([]Tag, 0, len(files[0].Fields))
	for name, value := range files[0].Fields {
		tags = append(tags, Tag{Name: name, Value: value})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// CopyTags copies the metadata of src onto dst in place.
func CopyTags(src, dst string) error {
	cmd := exec.Command("exiftool", "-TagsFromFile", src, "-overwrite_original", dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("exiftool copy failed: %v: %s", err, out)
	}
	return nil
}
