package services

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/bazario/bazario-backend/internal/models"
)

// Media stores binary images in object storage and returns durable
// references. Implemented by Cloudinary in production and a fake in tests.
type Media interface {
	Upload(ctx context.Context, data []byte, folder string) (models.Avatar, error)
	Delete(ctx context.Context, publicID string) error
	Replace(ctx context.Context, oldPublicID string, data []byte, folder string) (models.Avatar, error)
}

type CloudinaryMedia struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryMedia(cloudName, apiKey, apiSecret string) (*CloudinaryMedia, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryMedia{cld: cld}, nil
}

// Upload sends in-memory image bytes to Cloudinary. No temporary on-disk
// artifact is created.
func (m *CloudinaryMedia) Upload(ctx context.Context, data []byte, folder string) (models.Avatar, error) {
	result, err := m.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return models.Avatar{}, fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return models.Avatar{PublicID: result.PublicID, URL: result.SecureURL}, nil
}

// Delete removes a stored object. A missing reference is a no-op.
func (m *CloudinaryMedia) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := m.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}

// Replace uploads the new image first, then best-effort deletes the old one.
// Cleanup failure is logged, never surfaced: replacement must not fail
// because the superseded asset could not be removed.
func (m *CloudinaryMedia) Replace(ctx context.Context, oldPublicID string, data []byte, folder string) (models.Avatar, error) {
	ref, err := m.Upload(ctx, data, folder)
	if err != nil {
		return models.Avatar{}, err
	}
	if err := m.Delete(ctx, oldPublicID); err != nil {
		log.Printf("failed to delete superseded asset %s: %v", oldPublicID, err)
	}
	return ref, nil
}
