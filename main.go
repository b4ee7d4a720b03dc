package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/llehouerou/cadence/internal/config"
	"github.com/llehouerou/cadence/internal/errmsg"
	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/notify"
	"github.com/llehouerou/cadence/internal/playback"
	remotempd "github.com/llehouerou/cadence/internal/remote/mpd"
	"github.com/llehouerou/cadence/internal/state"
	"github.com/llehouerou/cadence/internal/widget"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpInitialize, err))
	}

	log := newLogger(cfg.Log)

	stateMgr, err := state.Open()
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpStateOpen, err))
	}
	defer stateMgr.Close()

	provider, err := remotempd.New(cfg.MPD.Address, cfg.MPD.Password, log)
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpConnect, err))
	}

	svc := playback.New(provider, log, playback.WithFetchLimit(cfg.FetchLimit))
	defer svc.Close()

	if err := svc.LoadLibrary(context.Background()); err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpLibraryFetch, err))
	}

	restoreSaved(svc, stateMgr, log)

	var exporter *widget.Exporter
	if cfg.WidgetEnabled() {
		exporter, err = widget.New(cfg.Widget.Path)
		if err != nil {
			log.Warn("widget export disabled", "error", err)
		} else {
			defer exporter.Close()
			log.Info("widget export enabled", "path", exporter.Path())
		}
	}

	var notifier notify.Notifier
	var artwork *notify.ArtworkCache
	if cfg.NotificationsEnabled() {
		notifier, err = notify.New()
		if err != nil {
			log.Warn("notifications disabled", "error", err)
		} else {
			artwork, err = notify.NewArtworkCache()
			if err != nil {
				log.Warn("artwork cache disabled", "error", err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("cadence running", "mpd", cfg.MPD.Address)
	watchEvents(ctx, svc, stateMgr, exporter, notifier, artwork, log)

	log.Info("shutting down")
	return nil
}

// watchEvents is the app-side consumer of playback events: it persists
// mode changes, keeps the widget file fresh, and raises desktop
// notifications on track changes. Blocks until ctx is canceled.
func watchEvents(
	ctx context.Context,
	svc playback.Service,
	stateMgr state.Interface,
	exporter *widget.Exporter,
	notifier notify.Notifier,
	artwork *notify.ArtworkCache,
	log *slog.Logger,
) {
	sub := svc.Subscribe()
	var lastNotifyID uint32

	exportSnapshot := func() {
		if exporter == nil {
			return
		}
		snap := svc.Snapshot()
		doc := widget.NowPlaying{IsPlaying: snap.IsPlaying}
		if snap.NowPlaying != nil {
			doc.Title = snap.NowPlaying.Title
			doc.Artist = snap.NowPlaying.Artist
			doc.Album = snap.NowPlaying.Album
			doc.ArtworkURL = snap.NowPlaying.ArtworkURL
		}
		exporter.Update(doc)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return

		case e := <-sub.TrackChanged:
			exportSnapshot()
			if notifier != nil && e.Current != nil {
				icon := ""
				if artwork != nil {
					icon = artwork.Fetch(e.Current.ArtworkURL)
				}
				n := notify.TrackChanged(e.Current.Title, e.Current.Artist, e.Current.Album, icon, lastNotifyID)
				if id, err := notifier.Notify(n); err == nil {
					lastNotifyID = id
				}
			}

		case <-sub.StateChanged:
			exportSnapshot()

		case e := <-sub.ModeChanged:
			stateMgr.SavePlayback(state.PlaybackState{
				RepeatMode: int(e.RepeatMode),
				Shuffle:    e.Shuffle,
			})

		case e := <-sub.SortChanged:
			if err := stateMgr.SaveSortPrefs(state.SortPrefs{
				Field:     e.Field.String(),
				Direction: e.Direction.String(),
			}); err != nil {
				log.Warn(errmsg.Format(errmsg.OpStateSave, err))
			}

		case <-sub.PositionChanged:
			// position is not exported; the widget shows track identity only

		case e := <-sub.Error:
			log.Warn("playback error", "operation", e.Operation, "error", e.Err)
		}
	}
}

// restoreSaved applies persisted modes and sort order before the first
// user action.
func restoreSaved(svc playback.Service, stateMgr state.Interface, log *slog.Logger) {
	if prefs, err := stateMgr.GetSortPrefs(); err != nil {
		log.Warn(errmsg.Format(errmsg.OpStateLoad, err))
	} else if prefs != nil {
		svc.SetSortOrder(library.ParseSortField(prefs.Field), library.ParseSortDirection(prefs.Direction))
	}

	if pb, err := stateMgr.GetPlayback(); err != nil {
		log.Warn(errmsg.Format(errmsg.OpStateLoad, err))
	} else if pb != nil {
		svc.SetRepeatMode(playback.RepeatMode(pb.RepeatMode))
		if pb.Shuffle {
			svc.ToggleShuffle()
		}
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
