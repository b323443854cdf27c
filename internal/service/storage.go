package service

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

// StoredFile describes a blob after storage: the name shown to clients and
// the path used to address it later.
type StoredFile struct {
	DisplayName string
	Name        string
	Path        string
}

// FileStore is the blob storage capability. Delete tolerates missing files.
type FileStore interface {
	Store(data []byte, fileName, titleHint string) (StoredFile, error)
	// Archive packs previously stored files into a single zip and stores it.
	Archive(title string, paths []string) (StoredFile, error)
	Delete(path string) error
	// Resolve maps a stored path to its location on disk.
	Resolve(path string) string
}

type localFileStore struct {
	dir string
	log logger.Logger
}

func NewLocalFileStore(dir string, log logger.Logger) (FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Storage("file", err)
	}
	return &localFileStore{dir: dir, log: log}, nil
}

func (s *localFileStore) Store(data []byte, fileName, titleHint string) (StoredFile, error) {
	ext := filepath.Ext(fileName)
	diskName := uuid.New().String() + ext

	if err := os.WriteFile(filepath.Join(s.dir, diskName), data, 0o644); err != nil {
		s.log.Error("failed to store file", "name", fileName, "error", err)
		return StoredFile{}, apperr.Storage("file", err)
	}

	display := strings.TrimSpace(fileName)
	if display == "" {
		display = titleHint + ext
	}

	return StoredFile{
		DisplayName: display,
		Name:        diskName,
		Path:        "/" + diskName,
	}, nil
}

func (s *localFileStore) Archive(title string, paths []string) (StoredFile, error) {
	name := archiveName(title)
	diskName := name + ".zip"
	full := filepath.Join(s.dir, diskName)

	out, err := os.Create(full)
	if err != nil {
		s.log.Error("failed to create archive", "name", diskName, "error", err)
		return StoredFile{}, apperr.Storage("file", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, path := range paths {
		src := filepath.Join(s.dir, filepath.Base(path))
		data, err := os.ReadFile(src)
		if err != nil {
			// A missing member is skipped, not fatal.
			s.log.Warn("skipping missing archive member", "path", path, "error", err)
			continue
		}
		w, err := zw.Create(filepath.Base(path))
		if err != nil {
			zw.Close()
			return StoredFile{}, apperr.Storage("file", err)
		}
		if _, err := w.Write(data); err != nil {
			zw.Close()
			return StoredFile{}, apperr.Storage("file", err)
		}
	}
	if err := zw.Close(); err != nil {
		return StoredFile{}, apperr.Storage("file", err)
	}

	return StoredFile{
		DisplayName: diskName,
		Name:        diskName,
		Path:        "/" + diskName,
	}, nil
}

// archiveName makes a filesystem-safe zip name out of the title and the
// current timestamp.
func archiveName(title string) string {
	stamp := time.Now().Format("2006-01-02_15-04")
	name := strings.TrimSpace(title) + "_" + stamp
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, ":", "_")
}

func (s *localFileStore) Resolve(path string) string {
	return filepath.Join(s.dir, filepath.Base(path))
}

func (s *localFileStore) Delete(path string) error {
	if path == "" {
		return nil
	}

	full := filepath.Join(s.dir, filepath.Base(path))
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.log.Error("failed to delete file", "path", path, "error", err)
		return apperr.Storage("file", err)
	}
	return nil
}
