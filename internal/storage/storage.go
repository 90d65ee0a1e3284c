package storage

import (
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadStore saves client-uploaded artifacts to local disk under a random
// filename and hands back the stored name for URL construction.
type UploadStore struct {
	dir string
}

func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &UploadStore{dir: dir}, nil
}

func (s *UploadStore) Dir() string { return s.dir }

// Save stores the uploaded file and returns the generated filename. The
// original extension is kept so static serving picks a sensible content type.
func (s *UploadStore) Save(c *gin.Context, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(s.dir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a stored file. A missing file is not an error; the record
// pointing at it is already being removed.
func (s *UploadStore) Remove(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
