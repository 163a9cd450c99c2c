// Package avatar normalizes uploaded avatar images and persists their
// reference on the account. The handler stages the upload into a temp file
// and owns its cleanup; this service only ever writes the final artifact.
package avatar

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	// Register the webp decoder; webp uploads are re-encoded as JPEG.
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/hnatiuk/accounts/internal/apperror"
)

// avatarSize is the fixed square dimension avatars are normalized to.
const avatarSize = 250

// publicPrefix is the URL path avatars are served under.
const publicPrefix = "/avatars"

// Store is the slice of the account store this service needs: persisting
// the avatar reference after the file lands.
type Store interface {
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) error
}

// Service resizes uploaded images to a fixed square and places them at a
// stable path keyed by account ID.
type Service struct {
	store Store
	dir   string
}

// NewService creates an avatar service writing into dir. The directory is
// created on first use if missing.
func NewService(store Store, dir string) *Service {
	return &Service{store: store, dir: dir}
}

// Ingest reads the staged upload at tmpPath, normalizes it to 250x250, and
// writes it to <dir>/<accountID><ext>, where ext comes from the original
// filename. The stored and returned reference is the public path. The
// caller removes tmpPath on every exit path; on encode failure the partial
// output file is removed here.
func (s *Service) Ingest(ctx context.Context, accountID, tmpPath, originalName string) (string, error) {
	f, err := os.Open(tmpPath)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("opening staged upload: %w", err))
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return "", apperror.NewProcessing(fmt.Errorf("decoding avatar image: %w", err))
	}

	// Exact 250x250, no aspect preservation: avatars render in square
	// slots and clients expect the fixed dimension.
	dst := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	ext := normalizeExt(originalName)
	filename := accountID + ext

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("creating avatar directory: %w", err))
	}

	finalPath := filepath.Join(s.dir, filename)
	out, err := os.Create(finalPath)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("creating avatar file: %w", err))
	}

	encodeErr := encode(out, dst, ext)
	closeErr := out.Close()
	if encodeErr != nil || closeErr != nil {
		os.Remove(finalPath)
		if encodeErr != nil {
			return "", apperror.NewProcessing(fmt.Errorf("encoding avatar: %w", encodeErr))
		}
		return "", apperror.NewInternal(fmt.Errorf("writing avatar file: %w", closeErr))
	}

	avatarURL := publicPrefix + "/" + filename
	if err := s.store.UpdateAvatarURL(ctx, accountID, avatarURL); err != nil {
		os.Remove(finalPath)
		return "", apperror.NewInternal(fmt.Errorf("saving avatar reference: %w", err))
	}

	slog.Info("avatar updated",
		slog.String("user_id", accountID),
		slog.String("avatar_url", avatarURL),
	)

	return avatarURL, nil
}

// normalizeExt maps the original filename's extension to one this service
// can encode. Formats without an encoder (webp and anything unknown) are
// stored as JPEG.
func normalizeExt(originalName string) string {
	switch ext := strings.ToLower(filepath.Ext(originalName)); ext {
	case ".png", ".gif", ".jpg", ".jpeg":
		return ext
	default:
		return ".jpg"
	}
}

// encode writes img in the format implied by ext.
func encode(out *os.File, img image.Image, ext string) error {
	switch ext {
	case ".png":
		return png.Encode(out, img)
	case ".gif":
		return gif.Encode(out, img, nil)
	default:
		return jpeg.Encode(out, img, &jpeg.Options{Quality: 85})
	}
}
