package filestorage

import (
	"errors"
	"mime/multipart"
)

// ErrUnsupportedType is returned when the sniffed content type of an upload
// is not on the storage's allow list.
var ErrUnsupportedType = errors.New("unsupported file type")

// FileInfo describes a stored file
type FileInfo struct {
	URL      string `json:"url" example:"http://localhost:8080/images/4f9c2a4e-3b8e-4bde-9c55-0c5d7c1e8a11.png"`
	Filename string `json:"filename" example:"avatar.png"`
	Size     int64  `json:"size" example:"48213"`
	MimeType string `json:"mimeType" example:"image/png"`
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFile stores the upload under a generated name and returns where it
	// can be fetched from.
	SaveFile(fileHeader *multipart.FileHeader) (*FileInfo, error)
}
