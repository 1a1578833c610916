package httpd

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// uploadStore spills multipart file parts of one session to TempDir.
// Files are named upload-<session>-<uuid>.
type uploadStore struct {
	dir     string
	session string
	paths   []string
}

func newUploadStore(dir, session string) *uploadStore {
	return &uploadStore{dir: dir, session: session}
}

// Save writes data to a new file and returns its path.
func (u *uploadStore) Save(data []byte) (string, error) {
	path := filepath.Join(u.dir, "upload-"+u.session+"-"+uuid.NewString())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	u.paths = append(u.paths, path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// RemoveAll deletes every file the store created. Files the handler already
// moved or removed are skipped.
func (u *uploadStore) RemoveAll(log *zerolog.Logger) {
	for _, path := range u.paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("removing upload")
		}
	}
	u.paths = nil
}
