package services

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	apperrors "github.com/yashrajoria/storefront/common/errors"
)

// UploadFolders maps each image folder to the file name prefix used in it.
var UploadFolders = map[string]string{
	"categories": "category",
	"brands":     "brand",
	"products":   "product",
	"users":      "user",
}

type PutPresigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, map[string]string, error)
}

type PresignedUpload struct {
	UploadURL string            `json:"uploadUrl"`
	Key       string            `json:"key"`
	FileName  string            `json:"fileName"`
	Headers   map[string]string `json:"headers"`
}

type UploadService struct {
	presigner PutPresigner
}

func NewUploadService(presigner PutPresigner) *UploadService {
	return &UploadService{presigner: presigner}
}

// Presign returns a PUT URL for an image under folder. FileName is the value
// to store in the record's image field.
func (s *UploadService) Presign(ctx context.Context, folder, fileName, contentType string) (*PresignedUpload, error) {
	if s.presigner == nil {
		return nil, apperrors.New(http.StatusServiceUnavailable, "Uploads are not configured", nil)
	}
	prefix, ok := UploadFolders[folder]
	if !ok {
		return nil, apperrors.BadRequest("Unknown upload folder: %s", folder)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.BadRequest("Only images are allowed")
	}

	ext := strings.ToLower(path.Ext(fileName))
	base := slug.Make(strings.TrimSuffix(path.Base(fileName), path.Ext(fileName)))
	name := prefix + "-" + uuid.NewString()
	if base != "" {
		name += "-" + base
	}
	name += ext
	key := folder + "/" + name

	url, headers, err := s.presigner.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &PresignedUpload{UploadURL: url, Key: key, FileName: name, Headers: headers}, nil
}
