package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"example.com/restaurant/services/ordering/internal/faults"
)

// maxImageSize caps menu image uploads at 5 MiB.
const maxImageSize = 5 << 20

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// ImageStore saves uploaded menu item images.
type ImageStore struct {
	objects ObjectStore
}

// NewImageStore creates a new image store
func NewImageStore(objects ObjectStore) *ImageStore {
	return &ImageStore{objects: objects}
}

// Save validates and stores an uploaded image, returning its public URL.
// Filenames are regenerated so uploads cannot collide or traverse paths.
func (s *ImageStore) Save(ctx context.Context, header *multipart.FileHeader) (string, error) {
	if header.Size > maxImageSize {
		return "", faults.Validation("image must be 5MB or smaller")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		return "", faults.Validation("image must be a png, jpg, jpeg or webp file")
	}

	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxImageSize {
		return "", faults.Validation("image must be 5MB or smaller")
	}

	key := fmt.Sprintf("menu-%s%s", uuid.NewString(), ext)
	return s.objects.Store(ctx, key, data)
}
