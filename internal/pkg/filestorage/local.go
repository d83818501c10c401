package filestorage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sniffLen = 512

// ImageTypes maps the accepted image content types to the extension used on disk
var ImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string            // directory the files are written to
	baseURL  string            // URL prefix the directory is served under
	allowed  map[string]string // content type -> extension
	logger   zerolog.Logger
}

// NewLocalStorage creates the base directory if needed. Only uploads whose
// sniffed content type is a key of allowed are stored.
func NewLocalStorage(basePath, baseURL string, allowed map[string]string, logger zerolog.Logger) (*LocalStorage, error) {
	logger = logger.With().Str("component", "filestorage").Logger()
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		allowed:  allowed,
		logger:   logger,
	}, nil
}

// SaveFile writes the upload as <uuid><ext>. The extension follows the
// detected content type, never the client supplied name.
func (ls *LocalStorage) SaveFile(fileHeader *multipart.FileHeader) (*FileInfo, error) {
	if fileHeader == nil {
		return nil, fmt.Errorf("no file uploaded")
	}

	file, err := fileHeader.Open()
	if err != nil {
		ls.logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	head = head[:n]

	mimeType := http.DetectContentType(head)
	ext, ok := ls.allowed[mimeType]
	if !ok {
		ls.logger.Warn().Str("filename", fileHeader.Filename).Str("mimeType", mimeType).Msg("Rejected upload with unsupported type")
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	uniqueFilename := uuid.New().String() + ext
	dstPath := filepath.Join(ls.basePath, uniqueFilename)

	dst, err := os.Create(dstPath)
	if err != nil {
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		ls.logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	info := &FileInfo{
		URL:      ls.baseURL + "/" + uniqueFilename,
		Filename: filepath.Base(fileHeader.Filename),
		Size:     size,
		MimeType: mimeType,
	}
	ls.logger.Info().Str("filename", info.Filename).Str("savedAs", uniqueFilename).Int64("size", size).Msg("File saved successfully")
	return info, nil
}
