package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/regdesk/regdesk/internal/api"
	"github.com/regdesk/regdesk/internal/domain"
	"github.com/regdesk/regdesk/internal/notify"
)

// pdfMagic is the fixed signature every PDF starts with.
var pdfMagic = []byte("%PDF-")

// UploadService sends local PDF files to the backend for ingestion. Anything
// that is not a PDF is rejected before the file leaves the machine.
type UploadService struct {
	client  *api.Client
	notices *notify.Center
	logger  *zap.Logger

	mu   sync.Mutex
	busy bool
}

// NewUploadService builds an upload service.
func NewUploadService(client *api.Client, notices *notify.Center, logger *zap.Logger) *UploadService {
	return &UploadService{client: client, notices: notices, logger: logger}
}

// Busy reports whether an upload is outstanding.
func (s *UploadService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Upload validates that the file at path is a PDF and submits it for
// processing. Validation failures never reach the network; overlapping
// uploads are rejected with ErrBusy.
func (s *UploadService) Upload(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		s.notices.Warn("Invalid File Type", "Please select a PDF file")
		return domain.ErrNotPDF
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("upload open failed", zap.String("path", path), zap.Error(err))
		s.notices.Error("Upload Failed", "Could not read the selected file")
		return err
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, pdfMagic) {
		s.notices.Warn("Invalid File Type", "Please select a PDF file")
		return domain.ErrNotPDF
	}

	body := io.MultiReader(bytes.NewReader(head), f)
	if err := s.client.ProcessDocument(ctx, filepath.Base(path), body); err != nil {
		s.logger.Warn("upload failed", zap.String("path", path), zap.Error(err))
		s.notices.Error("Upload Failed", "An error occurred during upload")
		return err
	}

	s.logger.Info("document uploaded", zap.String("path", path))
	s.notices.Success("Upload Successful", "Document has been processed successfully")
	return nil
}
