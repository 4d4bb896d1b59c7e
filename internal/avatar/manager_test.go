// AngelaMos | 2026
// manager_test.go

package avatar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/core"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()

	m, err := NewManager(config.AvatarConfig{
		PublicDir:      filepath.Join(root, "public"),
		TempDir:        filepath.Join(root, "temp"),
		MaxUploadBytes: 16,
	})
	require.NoError(t, err)
	return m
}

func stageUpload(t *testing.T, m *Manager, content string) string {
	t.Helper()
	f, err := os.CreateTemp(m.TempDir(), "upload-*")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestDefaultURL(t *testing.T) {
	a := DefaultURL("a@b.com")
	b := DefaultURL("  A@B.com ")

	assert.Equal(t, a, b, "derivation ignores case and surrounding space")
	assert.True(t, strings.HasPrefix(a, "https://www.gravatar.com/avatar/"))
	assert.Contains(t, a, "d=mp")
	assert.Contains(t, a, "s=200")
	assert.NotEqual(t, a, DefaultURL("c@d.com"))
	assert.False(t, IsCustom(a))
}

func TestPersist_MovesFileIntoAvatars(t *testing.T) {
	m := newTestManager(t)
	tmp := stageUpload(t, m, "png-bytes")

	rel, err := m.Persist(context.Background(), tmp, ".PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rel, "avatars/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))
	assert.True(t, IsCustom(rel))

	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err), "temp file is renamed, not copied")

	data, err := os.ReadFile(filepath.Join(m.PublicDir(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestPersist_RejectsUnknownExtension(t *testing.T) {
	m := newTestManager(t)
	tmp := stageUpload(t, m, "x")

	_, err := m.Persist(context.Background(), tmp, ".exe")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestDeleteIfCustom(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rel, err := m.Persist(ctx, stageUpload(t, m, "x"), ".jpg")
	require.NoError(t, err)
	full := filepath.Join(m.PublicDir(), filepath.FromSlash(rel))

	require.NoError(t, m.DeleteIfCustom(ctx, rel))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, m.DeleteIfCustom(ctx, rel), "second delete is a no-op")
}

func TestDeleteIfCustom_LeavesForeignValues(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	outside := filepath.Join(m.PublicDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	values := []string{
		"",
		DefaultURL("a@b.com"),
		"http://cdn.example.com/avatars/a.png",
		"//www.gravatar.com/avatar/abc",
		"keep.txt",
		"avatars/../keep.txt",
	}

	for _, v := range values {
		assert.NoError(t, m.DeleteIfCustom(ctx, v), v)
	}

	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestStage(t *testing.T) {
	m := newTestManager(t)

	u, err := m.Stage(strings.NewReader("small"), "me.JPG")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", u.Ext)
	assert.Equal(t, m.TempDir(), filepath.Dir(u.TempPath))

	m.Discard(u)
	_, err = os.Stat(u.TempPath)
	assert.True(t, os.IsNotExist(err))

	m.Discard(u)
}

func TestStage_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		filename string
	}{
		{name: "too large", body: strings.Repeat("x", 17), filename: "a.png"},
		{name: "empty", body: "", filename: "a.png"},
		{name: "bad extension", body: "x", filename: "a.svg"},
		{name: "no extension", body: "x", filename: "avatar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)

			_, err := m.Stage(strings.NewReader(tt.body), tt.filename)
			assert.ErrorIs(t, err, core.ErrInvalidInput)

			entries, err := os.ReadDir(m.TempDir())
			require.NoError(t, err)
			assert.Empty(t, entries, "rejected uploads leave nothing behind")
		})
	}
}
