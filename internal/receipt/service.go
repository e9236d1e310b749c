package receipt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/google/uuid"
)

const DefaultMaxFileSize = 10 << 20

var (
	ErrUploadFailed = internal.NewExternalError("attachment upload failed", internal.ErrCodeUploadFailed)
	ErrFileTooLarge = internal.NewValidationError("attachment exceeds the maximum file size", internal.ErrCodeValidationFailed)
)

type Service struct {
	store       Store
	recognizer  TextRecognizer
	maxFileSize int64
	logger      *slog.Logger
}

func NewService(store Store, recognizer TextRecognizer, maxFileSize int64, logger *slog.Logger) *Service {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Service{
		store:       store,
		recognizer:  recognizer,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Upload stores one attachment under the owner's prefix and returns its URL.
func (s *Service) Upload(ctx context.Context, ownerUID string, f File) (string, error) {
	data, err := s.read(f)
	if err != nil {
		return "", err
	}
	return s.put(ctx, ownerUID, f, data)
}

// UploadBill stores a bill image and then reads it. Recognition problems
// leave the extraction empty; only the upload itself can fail.
func (s *Service) UploadBill(ctx context.Context, ownerUID string, f File) (string, Extraction, error) {
	data, err := s.read(f)
	if err != nil {
		return "", Extraction{}, err
	}
	url, err := s.put(ctx, ownerUID, f, data)
	if err != nil {
		return "", Extraction{}, err
	}
	return url, s.recognize(ctx, f, data), nil
}

// read buffers the body, counting what was actually read rather than
// trusting the declared size.
func (s *Service) read(f File) ([]byte, error) {
	if f.Size > s.maxFileSize {
		return nil, ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(f.Body, s.maxFileSize+1))
	if err != nil {
		return nil, internal.NewValidationError("could not read the uploaded file", internal.ErrCodeValidationFailed)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func (s *Service) put(ctx context.Context, ownerUID string, f File, data []byte) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s%s", sanitize(ownerUID), uuid.NewString(), strings.ToLower(filepath.Ext(f.Name)))

	url, err := s.store.Put(ctx, objectName, contentType(f), bytes.NewReader(data))
	if err != nil {
		s.logger.Error("attachment upload failed", "error", err, "file", f.Name, "owner", ownerUID)
		return "", ErrUploadFailed.Wrap(err)
	}

	s.logger.Info("attachment uploaded", "file", f.Name, "url", url)
	return url, nil
}

func (s *Service) recognize(ctx context.Context, f File, data []byte) Extraction {
	if s.recognizer == nil {
		return Extraction{}
	}
	text, err := s.recognizer.Recognize(ctx, contentType(f), data)
	if err != nil {
		s.logger.Warn("receipt recognition failed", "error", err, "file", f.Name)
		return Extraction{}
	}
	extraction := ParseReceiptText(text)
	s.logger.Debug("receipt scanned", "file", f.Name, "amount", extraction.Amount, "date", extraction.Date)
	return extraction
}

// Discard removes already-uploaded attachments after a failed submission.
func (s *Service) Discard(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.store.Delete(ctx, url); err != nil {
			s.logger.Warn("failed to discard attachment", "error", err, "url", url)
		}
	}
}

// Scan runs OCR on a receipt image. Recognition problems degrade to an empty
// extraction; only an oversized or unreadable upload is an error.
func (s *Service) Scan(ctx context.Context, f File) (Extraction, error) {
	data, err := s.read(f)
	if err != nil {
		return Extraction{}, err
	}
	return s.recognize(ctx, f, data), nil
}

func contentType(f File) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	return "application/octet-stream"
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "anonymous"
	}
	return s
}

// NewFile wraps in-memory bytes, mostly for callers that already buffered.
func NewFile(name, contentType string, data []byte) File {
	return File{Name: name, ContentType: contentType, Size: int64(len(data)), Body: bytes.NewReader(data)}
}
