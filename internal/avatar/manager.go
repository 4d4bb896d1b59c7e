// AngelaMos | 2026
// manager.go

package avatar

import (
	"context"
	"crypto/md5" //nolint:gosec // gravatar addresses images by md5 of the email
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/core"
)

const (
	// Dir is the avatars directory below the public root and the prefix of
	// every stored custom avatar value.
	Dir = "avatars"

	gravatarBase = "https://www.gravatar.com/avatar/"
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// Manager owns the files under <public_dir>/avatars.
type Manager struct {
	publicDir      string
	tempDir        string
	maxUploadBytes int64
}

// Upload is a file staged in the temp dir and not yet published.
type Upload struct {
	TempPath string
	Ext      string
}

func NewManager(cfg config.AvatarConfig) (*Manager, error) {
	m := &Manager{
		publicDir:      filepath.Clean(cfg.PublicDir),
		tempDir:        filepath.Clean(cfg.TempDir),
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	if err := os.MkdirAll(m.avatarsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create avatars dir: %w", err)
	}
	if err := os.MkdirAll(m.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	return m, nil
}

func (m *Manager) avatarsDir() string {
	return filepath.Join(m.publicDir, Dir)
}

// PublicDir is the root served as static files.
func (m *Manager) PublicDir() string {
	return m.publicDir
}

// TempDir is where uploads are staged before Persist. It should sit on the
// same filesystem as the public dir so the rename is atomic.
func (m *Manager) TempDir() string {
	return m.tempDir
}

func (m *Manager) MaxUploadBytes() int64 {
	return m.maxUploadBytes
}

// Stage copies an uploaded file into the temp dir. Unsupported extensions
// and files over the size limit fail with core.ErrInvalidInput and leave
// nothing behind.
func (m *Manager) Stage(src io.Reader, filename string) (*Upload, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !IsAllowedExtension(ext) {
		return nil, fmt.Errorf(
			"stage avatar: unsupported avatar extension %q: %w",
			ext, core.ErrInvalidInput,
		)
	}

	f, err := os.CreateTemp(m.tempDir, "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("stage avatar: %w", err)
	}
	upload := &Upload{TempPath: f.Name(), Ext: ext}

	if m.maxUploadBytes > 0 {
		src = io.LimitReader(src, m.maxUploadBytes+1)
	}

	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		m.Discard(upload)
		return nil, fmt.Errorf("stage avatar: %w", copyErr)
	case closeErr != nil:
		m.Discard(upload)
		return nil, fmt.Errorf("stage avatar: %w", closeErr)
	case m.maxUploadBytes > 0 && n > m.maxUploadBytes:
		m.Discard(upload)
		return nil, fmt.Errorf(
			"stage avatar: avatar larger than %d bytes: %w",
			m.maxUploadBytes, core.ErrInvalidInput,
		)
	case n == 0:
		m.Discard(upload)
		return nil, fmt.Errorf("stage avatar: avatar file is empty: %w", core.ErrInvalidInput)
	}

	return upload, nil
}

// Discard removes a staged upload. It is a no-op once the upload has been
// persisted.
func (m *Manager) Discard(u *Upload) {
	if u == nil || u.TempPath == "" {
		return
	}
	if err := os.Remove(u.TempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove staged upload",
			"path", u.TempPath,
			"error", err,
		)
	}
}

// DefaultURL derives the gravatar address for email. It depends only on the
// email, never on stored state.
func DefaultURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	//nolint:gosec // not a security use
	sum := md5.Sum([]byte(normalized))

	q := url.Values{}
	q.Set("s", "200")
	q.Set("r", "pg")
	q.Set("d", "mp")

	return gravatarBase + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}

func IsAllowedExtension(ext string) bool {
	_, ok := allowedExtensions[strings.ToLower(ext)]
	return ok
}

// Persist renames a staged upload into the avatars directory under a fresh
// name and returns the public relative path, e.g. "avatars/<uuid>.png".
func (m *Manager) Persist(_ context.Context, tempPath, ext string) (string, error) {
	ext = strings.ToLower(ext)
	if !IsAllowedExtension(ext) {
		return "", fmt.Errorf(
			"persist avatar: unsupported avatar extension %q: %w",
			ext, core.ErrInvalidInput,
		)
	}

	name := uuid.New().String() + ext
	dst := filepath.Join(m.avatarsDir(), name)

	if err := os.Rename(tempPath, dst); err != nil {
		return "", fmt.Errorf("persist avatar: %w", err)
	}

	return path.Join(Dir, name), nil
}

// DeleteIfCustom removes a stored avatar file. External URLs and anything
// that does not resolve inside the avatars directory are left alone. A file
// that is already gone counts as deleted.
func (m *Manager) DeleteIfCustom(_ context.Context, value string) error {
	if !IsCustom(value) {
		return nil
	}

	rel := filepath.FromSlash(path.Clean("/" + value))[1:]
	full := filepath.Join(m.publicDir, rel)

	within, err := filepath.Rel(m.avatarsDir(), full)
	if err != nil || within == "." || strings.HasPrefix(within, "..") {
		return nil
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete avatar: %w", err)
	}

	return nil
}

// IsCustom reports whether value refers to a managed file rather than an
// externally hosted image.
func IsCustom(value string) bool {
	if value == "" {
		return false
	}

	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//") {
		return false
	}

	return strings.HasPrefix(path.Clean(strings.TrimPrefix(value, "/")), Dir+"/")
}
