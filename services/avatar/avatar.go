package avatar

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"shipfo/clients/gcp"
)

const cdnBaseURL = "https://cdn.discordapp.com/avatars"

// Service mirrors provider avatar images into our own bucket so pages never
// hot-link the provider CDN. Best effort: callers log failures and move on.
type Service interface {
	Mirror(ctx context.Context, userID, avatarHash string) error
}

var _ Service = (*service)(nil)

type service struct {
	http    *resty.Client
	storage *storage.Client
	bucket  string
	cdnURL  string
}

func NewService(client *resty.Client, storageClient *storage.Client, bucket string) Service {
	return &service{
		http:    client,
		storage: storageClient,
		bucket:  bucket,
		cdnURL:  cdnBaseURL,
	}
}

// ObjectName is where a user's avatar lives in the bucket. Derivable from the
// profile alone, so nothing extra is persisted.
func ObjectName(userID, avatarHash string) string {
	return fmt.Sprintf("%s/%s.png", userID, avatarHash)
}

func (s *service) Mirror(ctx context.Context, userID, avatarHash string) error {
	if avatarHash == "" {
		// Users without a custom avatar fall back to the provider default.
		return nil
	}
	resp, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(fmt.Sprintf("%s/%s/%s.png", s.cdnURL, userID, avatarHash))
	if err != nil {
		return fmt.Errorf("failed to fetch avatar: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return fmt.Errorf("failed to fetch avatar: status %d", resp.StatusCode())
	}

	name := ObjectName(userID, avatarHash)
	if err := gcp.UploadObject(ctx, s.storage, s.bucket, name, "image/png", body); err != nil {
		return fmt.Errorf("failed to store avatar: %w", err)
	}
	log.Debug().Str("object", name).Msg("mirrored avatar")
	return nil
}
