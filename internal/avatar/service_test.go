package avatar

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hnatiuk/accounts/internal/apperror"
)

type mockStore struct {
	updateAvatarURLFn func(ctx context.Context, id, avatarURL string) error
}

func (m *mockStore) UpdateAvatarURL(ctx context.Context, id, avatarURL string) error {
	if m.updateAvatarURLFn != nil {
		return m.updateAvatarURLFn(ctx, id, avatarURL)
	}
	return nil
}

// stagePNG writes a small PNG of the given size to a temp file and returns
// its path.
func stagePNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding staged image: %v", err)
	}
	path := filepath.Join(t.TempDir(), "staged")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("writing staged image: %v", err)
	}
	return path
}

func TestIngest_NormalizesAndStores(t *testing.T) {
	var savedID, savedURL string
	store := &mockStore{
		updateAvatarURLFn: func(ctx context.Context, id, avatarURL string) error {
			savedID, savedURL = id, avatarURL
			return nil
		},
	}
	dir := t.TempDir()
	svc := NewService(store, dir)

	got, err := svc.Ingest(context.Background(), "acct-1", stagePNG(t, 640, 480), "holiday.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/avatars/acct-1.png" {
		t.Errorf("expected /avatars/acct-1.png, got %s", got)
	}
	if savedID != "acct-1" || savedURL != got {
		t.Errorf("expected reference persisted for acct-1, got id=%s url=%s", savedID, savedURL)
	}

	f, err := os.Open(filepath.Join(dir, "acct-1.png"))
	if err != nil {
		t.Fatalf("opening written avatar: %v", err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decoding written avatar: %v", err)
	}
	if format != "png" {
		t.Errorf("expected png output, got %s", format)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 250 || bounds.Dy() != 250 {
		t.Errorf("expected 250x250, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestIngest_UndecodableInput(t *testing.T) {
	storeCalled := false
	store := &mockStore{
		updateAvatarURLFn: func(ctx context.Context, id, avatarURL string) error {
			storeCalled = true
			return nil
		},
	}
	svc := NewService(store, t.TempDir())

	path := filepath.Join(t.TempDir(), "staged")
	if err := os.WriteFile(path, []byte("not an image at all"), 0600); err != nil {
		t.Fatalf("writing staged file: %v", err)
	}

	_, err := svc.Ingest(context.Background(), "acct-1", path, "photo.png")
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != 500 || appErr.Type != "processing_error" {
		t.Errorf("expected a 500 processing_error, got %d %s", appErr.Code, appErr.Type)
	}
	if storeCalled {
		t.Error("expected no reference update for a failed avatar")
	}
}

func TestIngest_UnknownExtensionFallsBackToJPEG(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&mockStore{}, dir)

	got, err := svc.Ingest(context.Background(), "acct-1", stagePNG(t, 32, 32), "upload.webp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/avatars/acct-1.jpg" {
		t.Errorf("expected /avatars/acct-1.jpg, got %s", got)
	}

	f, err := os.Open(filepath.Join(dir, "acct-1.jpg"))
	if err != nil {
		t.Fatalf("opening written avatar: %v", err)
	}
	defer f.Close()
	if _, format, err := image.Decode(f); err != nil || format != "jpeg" {
		t.Errorf("expected jpeg output, got %s (err %v)", format, err)
	}
}

func TestIngest_StoreFailureRemovesFile(t *testing.T) {
	store := &mockStore{
		updateAvatarURLFn: func(ctx context.Context, id, avatarURL string) error {
			return errors.New("db down")
		},
	}
	dir := t.TempDir()
	svc := NewService(store, dir)

	_, err := svc.Ingest(context.Background(), "acct-1", stagePNG(t, 32, 32), "photo.png")
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "acct-1.png")); !os.IsNotExist(statErr) {
		t.Error("expected the orphaned avatar file to be removed")
	}
}
