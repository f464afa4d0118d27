package files

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BucketSubmissions = "submissions"
	BucketMaterials   = "materials"
	BucketAvatars     = "avatars"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

const (
	maxSubmissionBytes = 10 << 20
	maxMaterialBytes   = 10 << 20
	maxAvatarBytes     = 2 << 20
)

var submissionTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/gif":       true,
	"image/webp":      true,
	"image/avif":      true,
}

var materialExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".txt": true, ".png": true, ".jpg": true,
	".jpeg": true, ".gif": true, ".webp": true, ".avif": true, ".zip": true,
}

var avatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
}

func ValidateSubmission(contentType string, size int64) error {
	if !submissionTypes[contentType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if size > maxSubmissionBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, maxSubmissionBytes)
	}
	return nil
}

func ValidateMaterial(name string, size int64) error {
	ext := strings.ToLower(path.Ext(name))
	if !materialExtensions[ext] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if size > maxMaterialBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, maxMaterialBytes)
	}
	return nil
}

func ValidateAvatar(contentType string, size int64) error {
	if !avatarTypes[contentType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if size > maxAvatarBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, maxAvatarBytes)
	}
	return nil
}

func ValidateFor(bucket, name, contentType string, size int64) error {
	switch bucket {
	case BucketSubmissions:
		return ValidateSubmission(contentType, size)
	case BucketMaterials:
		return ValidateMaterial(name, size)
	case BucketAvatars:
		return ValidateAvatar(contentType, size)
	default:
		return fmt.Errorf("unknown bucket %q", bucket)
	}
}

// ObjectKey builds the storage key {user}/[{folder}/]{timestamp}_{random}.{ext}.
func ObjectKey(userID, folder, filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		ext = "bin"
	}
	random := strings.Split(uuid.NewString(), "-")[0]
	base := fmt.Sprintf("%d_%s.%s", time.Now().UnixMilli(), random, ext)
	if folder != "" {
		return fmt.Sprintf("%s/%s/%s", userID, folder, base)
	}
	return fmt.Sprintf("%s/%s", userID, base)
}
