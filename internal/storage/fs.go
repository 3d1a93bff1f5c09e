package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
)

// audioMIME maps the accepted audio extensions to their content types.
// Files with any other extension are rejected on save and skipped on
// listing.
var audioMIME = map[string]string{
	".webm": "audio/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// MIMEForFilename returns the content type for an accepted audio file
// name, or "" when the extension is not recognised.
func MIMEForFilename(name string) string {
	return audioMIME[strings.ToLower(filepath.Ext(name))]
}

// FS implements Provider backed by a flat local uploads directory.
type FS struct {
	root string // absolute path to the uploads directory
}

// NewFS creates a new FS provider rooted at the given directory,
// creating it if it does not exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute uploads directory path.
func (f *FS) Root() string { return f.root }

// safePath resolves a stored name against the uploads root and rejects
// any result that escapes it (directory traversal). The uploads
// directory is flat, so names containing separators are refused too.
func (f *FS) safePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: empty name")
	}
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || strings.ContainsRune(cleaned, os.PathSeparator) || cleaned == ".." {
		return "", fmt.Errorf("storage: invalid name: %s", name)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes uploads root: %s", name)
	}
	return abs, nil
}

// sanitize strips path components and whitespace from a client-supplied
// filename, keeping only the base name.
func sanitize(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSpace(base)
	return strings.ReplaceAll(base, " ", "_")
}

// Save stores content under "<millis>-<sanitized>" so repeated uploads
// of the same file never collide. The write is atomic: tmp file →
// fsync → rename.
func (f *FS) Save(filename string, content []byte) (models.UploadInfo, error) {
	base := sanitize(filename)
	mime := MIMEForFilename(base)
	if mime == "" {
		return models.UploadInfo{}, fmt.Errorf("storage: %s: %w", base, apperr.ErrUnsupportedMedia)
	}
	name := strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + base
	abs, err := f.safePath(name)
	if err != nil {
		return models.UploadInfo{}, err
	}

	tmp, err := os.CreateTemp(f.root, ".ansuz-tmp-*")
	if err != nil {
		return models.UploadInfo{}, fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return models.UploadInfo{}, fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return models.UploadInfo{}, fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return models.UploadInfo{}, fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return models.UploadInfo{}, fmt.Errorf("storage: rename: %w", err)
	}
	success = true

	return models.UploadInfo{
		Filename:  name,
		Size:      int64(len(content)),
		MIME:      mime,
		Checksum:  checksum.Sum(content),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Read returns the raw bytes of a stored file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Stat returns metadata for one stored file.
func (f *FS) Stat(name string) (models.UploadInfo, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return models.UploadInfo{}, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return models.UploadInfo{}, fmt.Errorf("storage: %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return models.UploadInfo{}, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	return models.UploadInfo{
		Filename:  name,
		Size:      info.Size(),
		MIME:      MIMEForFilename(name),
		UpdatedAt: info.ModTime(),
	}, nil
}

// List returns metadata for every stored audio file, newest first.
func (f *FS) List() ([]models.UploadInfo, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.UploadInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		mime := MIMEForFilename(e.Name())
		if mime == "" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, models.UploadInfo{
			Filename:  e.Name(),
			Size:      info.Size(),
			MIME:      mime,
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Filename > out[j].Filename
	})
	return out, nil
}

// Delete removes a stored file.
func (f *FS) Delete(name string) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	err = os.Remove(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}
