package app

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/repositories/storage"
	datasyncsvc "github.com/KirkDiggler/rpg-codex/internal/services/datasync"
	"github.com/KirkDiggler/rpg-codex/internal/store"
)

// DefaultInitTimeout bounds the essential data load during bootstrap
const DefaultInitTimeout = 15 * time.Second

// BootstrapOutput reports how the app came up
type BootstrapOutput struct {
	FirstVisit   bool
	Restored     []codex.DataType
	Loaded       []codex.DataType
	FallbackMode bool
}

// Bootstrap brings the store to a ready state: it restores persisted data,
// loads the essential types and marks the app ready. When the essential load
// fails the app enters fallback mode with the bundled data instead. Only an
// error that leaves the store unusable is returned; it is also kept for
// BootstrapError.
func (a *App) Bootstrap(ctx context.Context) (output *BootstrapOutput, err error) {
	start := a.clock.Now()
	defer func() {
		if err != nil {
			a.mu.Lock()
			a.bootstrapErr = err
			a.mu.Unlock()
			slog.ErrorContext(ctx, "bootstrap failed", "error", err)
		}
	}()

	if err := a.Store.Dispatch(store.SetAppInitialized{}); err != nil {
		return nil, err
	}

	output = &BootstrapOutput{}
	output.FirstVisit = a.markVisited(ctx)

	hydrated, err := a.Sync.Hydrate(ctx, &datasyncsvc.HydrateInput{})
	if err != nil {
		slog.WarnContext(ctx, "hydrate failed, loading from source", "error", err)
	} else {
		output.Restored = hydrated.Restored
	}

	var missing []codex.DataType
	for _, t := range a.Settings.Sync.EssentialTypes {
		if !slices.Contains(output.Restored, t) {
			missing = append(missing, t)
		}
	}

	if len(missing) > 0 {
		loadCtx, cancel := context.WithTimeout(ctx, DefaultInitTimeout)
		loaded, loadErr := a.Sync.Load(loadCtx, &datasyncsvc.LoadInput{Types: missing})
		cancel()
		if loaded != nil {
			output.Loaded = loaded.Loaded
		}
		if loadErr != nil {
			if err := a.enterFallbackMode(ctx, loadErr); err != nil {
				return nil, err
			}
		}
	}

	if err := a.Store.Dispatch(store.SetAppReady{Ready: true}); err != nil {
		return nil, err
	}
	output.FallbackMode = a.Store.GetState().App.FallbackMode

	slog.InfoContext(ctx, "app ready",
		"restored", output.Restored,
		"loaded", output.Loaded,
		"fallback_mode", output.FallbackMode,
		"duration", a.clock.Now().Sub(start))
	return output, nil
}

// enterFallbackMode records cause and fills every empty bucket with the
// bundled records
func (a *App) enterFallbackMode(ctx context.Context, cause error) error {
	slog.WarnContext(ctx, "essential data unavailable, entering fallback mode", "error", cause)

	if err := a.Store.Dispatch(store.SetAppError{Error: cause.Error()}); err != nil {
		return err
	}
	if err := a.Store.Dispatch(store.SetFallbackMode{Enabled: true}); err != nil {
		return err
	}

	for _, t := range codex.AllDataTypes() {
		if len(a.Store.Items(t)) > 0 {
			continue
		}
		if err := a.Store.Dispatch(store.SetBucketItems{
			Type:     t,
			Items:    a.Fallback.Records(t),
			Fallback: true,
		}); err != nil {
			return errors.Wrapf(err, "failed to install bundled %s", t)
		}
	}
	return nil
}

// markVisited reports whether this is the first run against the storage
func (a *App) markVisited(ctx context.Context) bool {
	var visited bool
	found, err := storage.Load(ctx, a.Storage, storage.KeyHasVisited, &visited)
	if err != nil {
		slog.WarnContext(ctx, "failed to read visit flag", "error", err)
	}
	if found && visited {
		return false
	}

	if _, err := a.Storage.Set(ctx, storage.SetInput{Key: storage.KeyHasVisited, Value: true}); err != nil {
		slog.WarnContext(ctx, "failed to record visit", "error", err)
	}
	return true
}

// Start runs the background preload of the non-essential types followed by
// the periodic freshness check until ctx is cancelled or Close is called
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	go func() {
		defer close(done)

		types := a.Settings.BackgroundTypes()
		if len(types) > 0 {
			out, err := a.Sync.Load(ctx, &datasyncsvc.LoadInput{
				Types:   types,
				Stagger: a.Settings.Sync.Stagger,
			})
			if err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "background preload failed", "error", err)
			} else if err == nil {
				slog.InfoContext(ctx, "background preload complete",
					"loaded", out.Loaded,
					"fallback", out.Fallback)
			}
		}

		if err := a.Sync.Run(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "data sync stopped", "error", err)
		}
	}()
}
