package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 2 << 20

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader хранит пользовательские файлы (аватары игроков).
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	// GetPublicURL возвращает "" для пустого ключа.
	GetPublicURL(key string) string
}

// AvatarKey builds the object key avatars/{player}/{unix}.{ext}. ok is false for
// content types that are not accepted as avatars.
func AvatarKey(playerID int, at time.Time, contentType string) (key string, ok bool) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("avatars/%d/%d.%s", playerID, at.Unix(), ext), true
}
