package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/pkg/filestorage"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 600)...)

func newImageRouter(t *testing.T, maxSize int64, caller *dto.Caller) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	storage, err := filestorage.NewLocalStorage(dir, "http://example.test/images", filestorage.ImageTypes, zerolog.Nop())
	require.NoError(t, err)

	r := gin.New()
	r.Static("/images", dir)
	handlers := []gin.HandlerFunc{}
	if caller != nil {
		handlers = append(handlers, withCaller(*caller))
	}
	handlers = append(handlers, NewImageController(storage, maxSize, zerolog.Nop()).UploadImage)
	r.POST("/api/v1/images", handlers...)
	return r
}

func upload(r http.Handler, field, name string, content []byte) (*httptest.ResponseRecorder, dto.APIResponse) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, _ := w.CreateFormFile(field, name)
	_, _ = part.Write(content)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp dto.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestUploadImage(t *testing.T) {
	caller := &dto.Caller{UserID: uuid.New(), Role: models.RoleStudent}

	t.Run("stored and served", func(t *testing.T) {
		r := newImageRouter(t, 1<<20, caller)
		w, resp := upload(r, "image", "avatar.png", pngImage)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Image uploaded successfully", resp.Message)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "image/png", data["mimeType"])
		assert.Equal(t, "avatar.png", data["filename"])

		// the URL passes the same validation as profilePhoto and submissionUrl
		rawURL := data["url"].(string)
		u, err := url.ParseRequestURI(rawURL)
		require.NoError(t, err)
		assert.Equal(t, "example.test", u.Host)

		get := httptest.NewRecorder()
		r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, u.Path, nil))
		assert.Equal(t, http.StatusOK, get.Code)
		assert.Equal(t, pngImage, get.Body.Bytes())
	})

	t.Run("missing file", func(t *testing.T) {
		r := newImageRouter(t, 1<<20, caller)
		w, resp := upload(r, "photo", "avatar.png", pngImage)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)
		assert.Equal(t, "image", resp.Error.Field)
	})

	t.Run("not an image", func(t *testing.T) {
		r := newImageRouter(t, 1<<20, caller)
		w, resp := upload(r, "image", "avatar.png", []byte("<html><body>hi</body></html>"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Only JPEG, PNG, GIF and WEBP images are allowed", resp.Error.Message)
	})

	t.Run("too large", func(t *testing.T) {
		r := newImageRouter(t, 100, caller)
		w, resp := upload(r, "image", "avatar.png", pngImage)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.False(t, resp.Success)
	})

	t.Run("no caller", func(t *testing.T) {
		r := newImageRouter(t, 1<<20, nil)
		w, _ := upload(r, "image", "avatar.png", pngImage)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
