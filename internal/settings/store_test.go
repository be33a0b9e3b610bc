package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitor-console/internal/types"
)

func TestStore_StartsUnset(t *testing.T) {
	s := NewStore()

	assert.Nil(t, s.Get())
	assert.False(t, s.Loaded())
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	values := []*types.AppSettings{
		{},
		{Theme: types.ThemeLight},
		{
			Theme:           types.ThemeAuto,
			Notifications:   types.Bool(false),
			AutoRefresh:     types.Bool(true),
			RefreshInterval: types.Int(0),
			Language:        "en-US",
			Timezone:        "Europe/Berlin",
		},
	}

	s := NewStore()
	for _, v := range values {
		s.Set(v)
		assert.Equal(t, v, s.Get())
		assert.True(t, s.Loaded())
	}
}

func TestStore_ResetAndSetNil(t *testing.T) {
	s := NewStore()

	s.Set(&types.AppSettings{Theme: types.ThemeDark})
	s.Reset()
	assert.Nil(t, s.Get())

	s.Set(&types.AppSettings{Theme: types.ThemeDark})
	s.Set(nil)
	assert.Nil(t, s.Get())
	assert.False(t, s.Loaded())
}

func TestStore_ThemeThenNotificationsScenario(t *testing.T) {
	s := NewStore()

	s.Set(&types.AppSettings{Theme: types.ThemeDark})
	assert.Equal(t, &types.AppSettings{Theme: types.ThemeDark}, s.Get())

	s.Update(func(cur *types.AppSettings) *types.AppSettings {
		return cur.Merge(&types.AppSettings{Notifications: types.Bool(true)})
	})
	assert.Equal(t, &types.AppSettings{Theme: types.ThemeDark, Notifications: types.Bool(true)}, s.Get())
}

func TestStore_CallerMutationDoesNotLeak(t *testing.T) {
	s := NewStore()

	in := &types.AppSettings{Notifications: types.Bool(true)}
	s.Set(in)
	*in.Notifications = false
	in.Theme = types.ThemeLight

	out := s.Get()
	assert.True(t, *out.Notifications)
	assert.Empty(t, out.Theme)

	out.Language = "fr"
	assert.Empty(t, s.Get().Language)
}

func TestStore_SubscribeReceivesCurrentThenEverySet(t *testing.T) {
	s := NewStore()
	s.Set(&types.AppSettings{Language: "en"})

	var got []*types.AppSettings
	unsubscribe := s.Subscribe(func(v *types.AppSettings) { got = append(got, v) })

	require.Len(t, got, 1)
	assert.Equal(t, "en", got[0].Language)

	s.Set(&types.AppSettings{Language: "de"})
	s.Set(&types.AppSettings{Language: "fr"})
	s.Reset()

	require.Len(t, got, 4)
	assert.Equal(t, "de", got[1].Language)
	assert.Equal(t, "fr", got[2].Language)
	assert.Nil(t, got[3])

	unsubscribe()
	s.Set(&types.AppSettings{Language: "it"})
	assert.Len(t, got, 4)
	assert.Equal(t, 0, s.Subscribers())
}

func TestStore_UpdateFromUnset(t *testing.T) {
	s := NewStore()

	s.Update(func(cur *types.AppSettings) *types.AppSettings {
		assert.Nil(t, cur)
		return cur.Merge(&types.AppSettings{Timezone: "UTC"})
	})

	assert.Equal(t, &types.AppSettings{Timezone: "UTC"}, s.Get())
}
