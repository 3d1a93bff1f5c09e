// Package storage defines the uploads file-system abstraction.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for stored meeting-audio operations.
type Provider interface {
	// Save stores content under a unique name derived from filename and
	// returns the metadata of the stored file.
	Save(filename string, content []byte) (models.UploadInfo, error)
	// Read returns the raw bytes of the file with the given stored name.
	Read(name string) ([]byte, error)
	// Stat returns metadata for one stored file.
	Stat(name string) (models.UploadInfo, error)
	// List returns metadata for every stored audio file, newest first.
	List() ([]models.UploadInfo, error)
	// Delete removes a stored file.
	Delete(name string) error
}
