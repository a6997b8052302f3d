package tracks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"danmaku/internal/logging"
	"danmaku/internal/services"
)

// Sentinel values marking a generated danmaku subtitle track.
const (
	SentinelKind  = "sub"
	SentinelLang  = "danmaku"
	SentinelTitle = "xml"
)

// Track is a snapshot of one entry in the player's track list.
type Track struct {
	Index    int
	ID       int64
	Kind     string
	Lang     string
	HasLang  bool
	Title    string
	HasTitle bool
}

// IsGenerated reports whether the track carries the generated-track sentinels.
func (t Track) IsGenerated() bool {
	return t.Kind == SentinelKind &&
		t.HasLang && t.Lang == SentinelLang &&
		t.HasTitle && t.Title == SentinelTitle
}

// PropertyReader reads player properties.
type PropertyReader interface {
	GetString(ctx context.Context, name string) (string, error)
	GetInt(ctx context.Context, name string) (int64, error)
}

// Host is the subset of the player needed to reconcile tracks.
type Host interface {
	PropertyReader
	RemoveSubtitle(ctx context.Context, id int64) error
}

// FindStale returns the first generated track in host order.
func FindStale(list []Track) (Track, bool) {
	for _, track := range list {
		if track.IsGenerated() {
			return track, true
		}
	}
	return Track{}, false
}

// Snapshot reads every entry of the track list. Missing lang and title
// properties are reported through HasLang and HasTitle.
func Snapshot(ctx context.Context, reader PropertyReader) ([]Track, error) {
	count, err := reader.GetInt(ctx, "track-list/count")
	if err != nil {
		return nil, fmt.Errorf("read track count: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("read track count: negative count %d", count)
	}
	list := make([]Track, 0, count)
	for i := range int(count) {
		track, err := readTrack(ctx, reader, i)
		if err != nil {
			return nil, err
		}
		list = append(list, track)
	}
	return list, nil
}

func readTrack(ctx context.Context, reader PropertyReader, index int) (Track, error) {
	track := Track{Index: index}
	prop := func(field string) string {
		return fmt.Sprintf("track-list/%d/%s", index, field)
	}

	var err error
	if track.Kind, err = reader.GetString(ctx, prop("type")); err != nil {
		return Track{}, fmt.Errorf("read track %d type: %w", index, err)
	}
	if track.ID, err = reader.GetInt(ctx, prop("id")); err != nil {
		return Track{}, fmt.Errorf("read track %d id: %w", index, err)
	}
	if track.Lang, track.HasLang, err = optionalString(ctx, reader, prop("lang")); err != nil {
		return Track{}, fmt.Errorf("read track %d lang: %w", index, err)
	}
	if track.Title, track.HasTitle, err = optionalString(ctx, reader, prop("title")); err != nil {
		return Track{}, fmt.Errorf("read track %d title: %w", index, err)
	}
	return track, nil
}

func optionalString(ctx context.Context, reader PropertyReader, name string) (string, bool, error) {
	value, err := reader.GetString(ctx, name)
	if errors.Is(err, services.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Reconcile removes at most one generated track. Failures are logged and
// swallowed; the return value reports whether a track was removed.
func Reconcile(ctx context.Context, host Host, logger *slog.Logger) bool {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "tracks"))

	list, err := Snapshot(ctx, host)
	if err != nil {
		logging.WarnWithContext(logger, "track list unavailable; skipping stale track cleanup", "track_snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a previous danmaku track may remain loaded"),
		)
		return false
	}

	stale, ok := FindStale(list)
	if !ok {
		logger.Debug("no stale danmaku track", logging.Int("track_count", len(list)))
		return false
	}

	if err := host.RemoveSubtitle(ctx, stale.ID); err != nil {
		logging.WarnWithContext(logger, "failed to remove stale danmaku track", "track_remove_failed",
			logging.Int64("track_id", stale.ID),
			logging.Int("track_index", stale.Index),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a previous danmaku track may remain loaded"),
		)
		return false
	}
	logger.Info("removed stale danmaku track",
		logging.Int64("track_id", stale.ID),
		logging.Int("track_index", stale.Index),
	)
	return true
}
