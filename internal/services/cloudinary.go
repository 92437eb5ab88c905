package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const attachmentTag = "diary-attachment"

// AttachmentUploader stores an uploaded file under folder and returns its public URL.
type AttachmentUploader interface {
	UploadFile(ctx context.Context, file multipart.File, folder string) (string, error)
}

// CloudinaryService uploads entry attachments. Every upload gets a fresh random
// public id, so a client can never overwrite an existing asset.
type CloudinaryService struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryService{cld: cld}, nil
}

func (s *CloudinaryService) UploadFile(ctx context.Context, file multipart.File, folder string) (string, error) {
	res, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:     uuid.NewString(),
		Folder:       folder,
		ResourceType: "auto",
		Overwrite:    api.Bool(false),
		Tags:         api.CldAPIArray{attachmentTag},
	})
	if err != nil {
		return "", fmt.Errorf("attachment upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("attachment upload rejected: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
