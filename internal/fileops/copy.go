package fileops

import (
	"io"
	"os"

	"github.com/spf13/afero"
)

// BackupSuffix is appended to a file name to form its backup name.
const BackupSuffix = ".bak"

// BackupPath returns the backup location for path ("image.jpg" -> "image.jpg.bak").
func BackupPath(path string) string {
	return path + BackupSuffix
}

// CreateBackup copies path to its backup location, overwriting an older backup.
func CreateBackup(fs afero.Fs, path string) error {
	return CopyFile(fs, path, BackupPath(path))
}

// CopyFile copies src to dst and gives dst the permissions of src.
func CopyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return fs.Chmod(dst, info.Mode().Perm())
}

// FileSize returns the size of path in bytes.
func FileSize(fs afero.Fs, path string) (int64, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
