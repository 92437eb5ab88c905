package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AnshRaj112/diary-backend/internal/auth"
	"github.com/AnshRaj112/diary-backend/internal/logging"
	"github.com/AnshRaj112/diary-backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	folder  string
	content []byte
	err     error
}

func (u *fakeUploader) UploadFile(_ context.Context, file multipart.File, folder string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	u.folder = folder
	u.content = data
	return "https://res.cloudinary.com/demo/" + folder + "/note.txt", nil
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/entries/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	uploader := &fakeUploader{}
	h := NewAttachmentHandler(uploader, auth.NewExtractor(""), logging.Discard())

	req := multipartRequest(t, "file", "note.txt", []byte("hello"))
	req.Header.Set("Authorization", bearer(t, alice))
	w := httptest.NewRecorder()
	h.Upload(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	folder := "diary/" + utils.OwnerKey(alice)
	assert.Equal(t, folder, uploader.folder)
	assert.Equal(t, []byte("hello"), uploader.content)
	assert.Equal(t, "https://res.cloudinary.com/demo/"+folder+"/note.txt", decode(t, w)["url"])
}

func TestUpload_Errors(t *testing.T) {
	t.Run("method", func(t *testing.T) {
		h := NewAttachmentHandler(&fakeUploader{}, auth.NewExtractor(""), logging.Discard())
		w := do(h.Upload, http.MethodGet, "/", bearer(t, alice), "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "Method Not Allowed. Expected: POST", errorOf(t, w))
	})

	t.Run("unauthorized", func(t *testing.T) {
		h := NewAttachmentHandler(&fakeUploader{}, auth.NewExtractor(""), logging.Discard())
		w := do(h.Upload, http.MethodPost, "/", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		h := NewAttachmentHandler(nil, auth.NewExtractor(""), logging.Discard())
		w := do(h.Upload, http.MethodPost, "/", bearer(t, alice), "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "Attachment uploads are not configured.", errorOf(t, w))
	})

	t.Run("not multipart", func(t *testing.T) {
		h := NewAttachmentHandler(&fakeUploader{}, auth.NewExtractor(""), logging.Discard())
		w := do(h.Upload, http.MethodPost, "/", bearer(t, alice), `{"file":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body.", errorOf(t, w))
	})

	t.Run("wrong field", func(t *testing.T) {
		h := NewAttachmentHandler(&fakeUploader{}, auth.NewExtractor(""), logging.Discard())
		req := multipartRequest(t, "image", "a.png", []byte("png"))
		req.Header.Set("Authorization", bearer(t, alice))
		w := httptest.NewRecorder()
		h.Upload(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No file provided.", errorOf(t, w))
	})

	t.Run("upload failure", func(t *testing.T) {
		h := NewAttachmentHandler(&fakeUploader{err: errors.New("cloudinary: invalid signature")}, auth.NewExtractor(""), logging.Discard())
		req := multipartRequest(t, "file", "a.txt", []byte("x"))
		req.Header.Set("Authorization", bearer(t, alice))
		w := httptest.NewRecorder()
		h.Upload(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error uploading attachment.", errorOf(t, w))
	})
}
