package services

import (
	"context"
	"fmt"
	"strings"

	"marketplace/internal/apperrors"
	"marketplace/internal/policy"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageStore persists uploaded files and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// UploadService accepts product images from sellers.
type UploadService struct {
	store    ImageStore
	maxBytes int64
	logger   *zap.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(store ImageStore, maxBytes int64, logger *zap.Logger) *UploadService {
	return &UploadService{store: store, maxBytes: maxBytes, logger: orNop(logger)}
}

// MaxBytes is the upload size ceiling.
func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// UploadImage stores data under a random name in the caller's folder. The
// content type is sniffed from the bytes, not taken from the client.
func (s *UploadService) UploadImage(ctx context.Context, owner policy.Principal, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.Validation("no file uploaded")
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperrors.Validation("file is too large (max %d MB)", s.maxBytes>>20)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", apperrors.Validation("only image files are allowed, got %s", mt.String())
	}

	name := fmt.Sprintf("%s/%s%s", owner.ID, uuid.New().String(), mt.Extension())
	url, err := s.store.Save(ctx, name, data)
	if err != nil {
		return "", apperrors.Internal(err, "failed to store image")
	}
	s.logger.Info("image uploaded",
		zap.String("user_id", owner.ID),
		zap.String("original_name", filename),
		zap.String("url", url),
		zap.String("mime", mt.String()))
	return url, nil
}
