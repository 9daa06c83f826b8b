package services_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"marketplace/internal/apperrors"
	"marketplace/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUploadService_AcceptsImages(t *testing.T) {
	store := new(MockImageStore)
	service := services.NewUploadService(store, 1<<20, nil)
	ctx := context.Background()

	store.On("Save", ctx, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, sellerA.ID+"/") && strings.HasSuffix(name, ".png")
	}), pngHeader).Return("/uploads/x.png", nil).Once()

	url, err := service.UploadImage(ctx, sellerA, "photo.jpg", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/x.png", url)
	store.AssertExpectations(t)
}

func TestUploadService_Rejects(t *testing.T) {
	store := new(MockImageStore)
	service := services.NewUploadService(store, 64, nil)
	ctx := context.Background()

	for name, data := range map[string][]byte{
		"empty":     nil,
		"too big":   append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...),
		"not image": []byte("just some plain text that pretends to be a picture"),
	} {
		_, err := service.UploadImage(ctx, sellerA, name, data)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err), name)
	}
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}
