package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bitor-console/internal/types"
)

const saveTimeout = 5 * time.Second

// Bind loads the persisted settings into s and then saves every later
// non-nil value back to repo. A Reset is a session teardown and leaves the
// stored row alone; use Repository.Clear to erase it.
//
// The returned function stops persisting.
func Bind(ctx context.Context, s *Store, repo Repository, logger *slog.Logger) (func(), error) {
	loaded, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if loaded == nil {
		loaded = &types.AppSettings{}
	}
	s.Set(loaded)
	logger.Info("settings loaded", "theme", loaded.Theme, "notifications", loaded.NotificationsEnabled())

	initial := true
	unsubscribe := s.Subscribe(func(v *types.AppSettings) {
		// Skip the immediate call: that value was just loaded.
		if initial {
			initial = false
			return
		}
		if v == nil {
			logger.Debug("settings reset, keeping persisted copy")
			return
		}

		saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := repo.Save(saveCtx, v); err != nil {
			logger.Error("failed to persist settings", "error", err)
		}
	})

	return unsubscribe, nil
}
