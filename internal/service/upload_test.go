package service

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
)

func writePDF(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadRejectsNonPDFExtension(t *testing.T) {
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("validation failures must not reach the network")
	}))
	notices := notify.NewCenter()
	svc := NewUploadService(backend, notices, zap.NewNop())

	err := svc.Upload(context.Background(), writePDF(t, "notes.txt", "plain text"))
	assert.ErrorIs(t, err, domain.ErrNotPDF)

	active := notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Invalid File Type", active[0].Title)
	assert.Equal(t, notify.LevelWarning, active[0].Level)
}

func TestUploadRejectsPDFExtensionWithWrongContent(t *testing.T) {
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("validation failures must not reach the network")
	}))
	notices := notify.NewCenter()
	svc := NewUploadService(backend, notices, zap.NewNop())

	err := svc.Upload(context.Background(), writePDF(t, "renamed.pdf", "<html>not a pdf</html>"))
	assert.ErrorIs(t, err, domain.ErrNotPDF)

	active := notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notify.LevelWarning, active[0].Level)
}

func TestUploadSendsFullFileAsMultipart(t *testing.T) {
	const content = "%PDF-1.4\nregulatory circular body"

	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/process-document", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "circular.pdf", header.Filename)

		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, content, string(got))

		respond(t, w, map[string]any{"status": "success"})
	}))
	notices := notify.NewCenter()
	svc := NewUploadService(backend, notices, zap.NewNop())

	require.NoError(t, svc.Upload(context.Background(), writePDF(t, "circular.pdf", content)))

	active := notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Upload Successful", active[0].Title)
	assert.Equal(t, notify.LevelSuccess, active[0].Level)
	assert.False(t, svc.Busy())
}

func TestUploadBackendFailureNotifies(t *testing.T) {
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ingestion down", http.StatusInternalServerError)
	}))
	notices := notify.NewCenter()
	svc := NewUploadService(backend, notices, zap.NewNop())

	err := svc.Upload(context.Background(), writePDF(t, "doc.pdf", "%PDF-1.7\nbody"))
	require.Error(t, err)

	active := notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Upload Failed", active[0].Title)
	assert.Equal(t, notify.LevelError, active[0].Level)
	assert.False(t, svc.Busy())
}

func TestUploadMissingFileNotifies(t *testing.T) {
	backend := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("an unreadable file must not reach the network")
	}))
	notices := notify.NewCenter()
	svc := NewUploadService(backend, notices, zap.NewNop())

	err := svc.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)

	active := notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Upload Failed", active[0].Title)
}
