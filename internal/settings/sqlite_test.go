package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitor-console/internal/types"
)

func newTestRepository(t *testing.T, defaults *types.AppSettings) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "settings.db"), defaults)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_LoadReturnsDefaults(t *testing.T) {
	defaults := &types.AppSettings{Theme: types.ThemeAuto, Notifications: types.Bool(true)}
	repo := newTestRepository(t, defaults)

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	// Callers must not be able to change the defaults.
	got.Theme = types.ThemeDark
	again, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.ThemeAuto, again.Theme)
}

func TestSQLiteRepository_LoadWithoutDefaults(t *testing.T) {
	repo := newTestRepository(t, nil)

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &types.AppSettings{}, got)
}

func TestSQLiteRepository_SaveLoadKeepsAbsentFieldsAbsent(t *testing.T) {
	repo := newTestRepository(t, &types.AppSettings{Language: "en"})
	ctx := context.Background()

	want := &types.AppSettings{
		Theme:           types.ThemeDark,
		Notifications:   types.Bool(false),
		RefreshInterval: types.Int(45),
		Timezone:        "America/New_York",
	}
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Nil(t, got.AutoRefresh)
	assert.Empty(t, got.Language, "a saved row replaces the defaults entirely")
}

func TestSQLiteRepository_EmptyStringsLoadAsAbsent(t *testing.T) {
	repo := newTestRepository(t, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &types.AppSettings{Theme: types.ThemeDark, Language: "", Timezone: ""}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, &types.AppSettings{Theme: types.ThemeDark}, got)
}

func TestSQLiteRepository_SaveOverwrites(t *testing.T) {
	repo := newTestRepository(t, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &types.AppSettings{Theme: types.ThemeDark, AutoRefresh: types.Bool(true)}))
	require.NoError(t, repo.Save(ctx, &types.AppSettings{Theme: types.ThemeLight}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, &types.AppSettings{Theme: types.ThemeLight}, got)
}

func TestSQLiteRepository_SaveNil(t *testing.T) {
	repo := newTestRepository(t, nil)
	assert.Error(t, repo.Save(context.Background(), nil))
}

func TestSQLiteRepository_Clear(t *testing.T) {
	repo := newTestRepository(t, &types.AppSettings{Theme: types.ThemeAuto})
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &types.AppSettings{Theme: types.ThemeDark}))
	require.NoError(t, repo.Clear(ctx))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ThemeAuto, got.Theme)
}

func TestSQLiteRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, &types.AppSettings{Language: "ja"}))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ja", got.Language)
}
