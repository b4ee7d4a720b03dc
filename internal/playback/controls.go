// internal/playback/controls.go
package playback

import (
	"fmt"
	"time"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/playctx"
	"github.com/llehouerou/cadence/internal/queuesync"
	"github.com/llehouerou/cadence/internal/remote"
)

// PlayTrack starts playback of track within context. The context
// becomes the new active logical context; pass nil to keep the
// current one. The snapshot updates optimistically before the remote
// transport confirms.
func (s *serviceImpl) PlayTrack(track library.Track, context []library.Track) {
	s.enqueue(func() {
		if len(context) > 0 {
			s.ctxmgr.SetContext(context)
		}
		s.playTrack(track)
	})
}

// playTrack is the loop-side start-playback path, shared by PlayTrack,
// resumed local navigation, and small-context repeat-all wraparound.
func (s *serviceImpl) playTrack(track library.Track) {
	s.pendingLocal = nil
	s.beginUserChange()
	if s.ctxmgr.ShuffleEnabled() {
		s.ctxmgr.Reshuffle(track)
	}
	s.syncFilterFlags()
	s.setPlaying(true)
	s.setNowPlayingTrack(track)

	src := s.ctxmgr.Tracks()
	batch := queuesync.InitialBatch(src, track)
	start := library.IndexOfTrack(batch, track)
	if start < 0 {
		start = 0
	}
	gen := s.gen
	go s.startPlayback(gen, batch, start, 0, true, s.snap.RepeatMode.Remote())
}

// startPlayback performs the remote side of a queue rebuild: replace,
// optional seek, optional play, and repeat-mode re-apply (the remote
// transport does not always persist repeat across a queue
// replacement). The completion is discarded when a newer user action
// superseded this one.
func (s *serviceImpl) startPlayback(
	gen uint64,
	batch []library.Track,
	startAt int,
	resumeAt time.Duration,
	play bool,
	mode remote.RepeatMode,
) {
	err := func() error {
		ctx, cancel := s.opCtx()
		defer cancel()
		if err := s.rqueue.Replace(ctx, library.Songs(batch), startAt); err != nil {
			return fmt.Errorf("replace queue: %w", err)
		}
		if resumeAt > 0 {
			if err := s.transport.SetPlaybackTime(ctx, resumeAt); err != nil {
				return fmt.Errorf("restore position: %w", err)
			}
		}
		if play {
			if err := s.transport.Play(ctx); err != nil {
				return fmt.Errorf("play: %w", err)
			}
		}
		return s.provider.SetSystemRepeatMode(ctx, mode)
	}()
	s.enqueue(func() {
		if gen != s.gen {
			return // superseded; a newer transition owns the state
		}
		if err != nil {
			s.log.Error("start playback failed", "error", err)
			s.setPlaying(false)
			s.userChangeUntil = time.Time{}
			s.sendError(ErrorEvent{Operation: "play", Err: err})
		}
	})
}

// Next advances to the next track. While playing it delegates to the
// remote transport's native skip and lets the resync path republish;
// while paused it only moves the local selection, leaving the remote
// queue untouched until playback resumes.
func (s *serviceImpl) Next() {
	s.enqueue(func() {
		if s.snap.IsPlaying {
			s.remoteSkip(true)
			return
		}
		next, ok := s.ctxmgr.Next(s.currentOrZero())
		if !ok {
			return
		}
		s.selectLocally(next)
	})
}

// Previous goes back one track, or restarts the current track when
// more than three seconds have elapsed.
func (s *serviceImpl) Previous() {
	s.enqueue(func() {
		if s.snap.Elapsed > previousRestartThreshold {
			s.restartCurrent()
			return
		}
		if s.snap.IsPlaying {
			s.remoteSkip(false)
			return
		}
		prev, ok := s.ctxmgr.Previous(s.currentOrZero())
		if !ok {
			return
		}
		s.selectLocally(prev)
	})
}

func (s *serviceImpl) remoteSkip(forward bool) {
	s.beginUserChange()
	gen := s.gen
	go func() {
		ctx, cancel := s.opCtx()
		defer cancel()
		var err error
		if forward {
			err = s.transport.SkipNext(ctx)
		} else {
			err = s.transport.SkipPrevious(ctx)
		}
		s.enqueue(func() {
			if gen != s.gen {
				return
			}
			if err != nil {
				s.log.Warn("remote skip failed", "error", err)
				// Reopen resync immediately so the snapshot recovers
				// from whatever state the transport is actually in.
				s.userChangeUntil = time.Time{}
				s.sendError(ErrorEvent{Operation: "skip", Err: err})
				s.scheduleResync()
			}
		})
	}()
}

// selectLocally publishes track as the paused selection without
// touching the remote queue. TogglePlayPause materializes it.
func (s *serviceImpl) selectLocally(track library.Track) {
	t := track
	s.pendingLocal = &t
	s.setNowPlayingTrack(track)
}

// restartCurrent rewinds the current track to its start.
func (s *serviceImpl) restartCurrent() {
	s.seekGuardUntil = time.Now().Add(s.timings.SeekGuard)
	s.snap.Elapsed = 0
	s.publish()
	s.sendPosition(PositionChange{Elapsed: 0, Duration: s.snap.Duration})
	gen := s.gen
	go func() {
		ctx, cancel := s.opCtx()
		defer cancel()
		err := s.transport.SetPlaybackTime(ctx, 0)
		s.enqueue(func() {
			if gen != s.gen {
				return
			}
			if err != nil {
				s.log.Warn("restart seek failed", "error", err)
				s.sendError(ErrorEvent{Operation: "seek", Err: err})
			}
		})
	}()
}

// TogglePlayPause flips between playing and paused. A pending local
// selection (made with Next/Previous while paused) starts playing
// instead of resuming the remote transport's stale entry.
func (s *serviceImpl) TogglePlayPause() {
	s.enqueue(func() {
		if s.pendingLocal != nil {
			track := *s.pendingLocal
			s.playTrack(track)
			return
		}
		wasPlaying := s.snap.IsPlaying
		s.setPlaying(!wasPlaying)
		gen := s.gen
		go func() {
			ctx, cancel := s.opCtx()
			defer cancel()
			var err error
			if wasPlaying {
				err = s.transport.Pause(ctx)
			} else {
				err = s.transport.Play(ctx)
			}
			s.enqueue(func() {
				if gen != s.gen {
					return
				}
				if err != nil {
					s.log.Warn("transport toggle failed", "error", err)
					s.setPlaying(wasPlaying)
					s.sendError(ErrorEvent{Operation: "toggle", Err: err})
				}
			})
		}()
	})
}

// Seek moves playback to t within the current track. Returns an error
// when t is outside [0, duration].
func (s *serviceImpl) Seek(t time.Duration) error {
	snap := s.Snapshot()
	if t < 0 || (snap.Duration > 0 && t > snap.Duration) {
		return fmt.Errorf("seek position %v out of range [0, %v]", t, snap.Duration)
	}
	s.enqueue(func() {
		s.seekGuardUntil = time.Now().Add(s.timings.SeekGuard)
		s.snap.Elapsed = t
		s.publish()
		s.sendPosition(PositionChange{Elapsed: t, Duration: s.snap.Duration})
		gen := s.gen
		go func() {
			ctx, cancel := s.opCtx()
			defer cancel()
			err := s.transport.SetPlaybackTime(ctx, t)
			s.enqueue(func() {
				if gen != s.gen {
					return
				}
				if err != nil {
					s.log.Warn("seek failed", "error", err)
					s.sendError(ErrorEvent{Operation: "seek", Err: err})
				}
			})
		}()
	})
	return nil
}

// ToggleShuffle flips shuffle and rebuilds the remote queue around the
// current track, preserving elapsed time and play state.
func (s *serviceImpl) ToggleShuffle() {
	s.enqueue(func() {
		cur := s.currentOrZero()
		if s.ctxmgr.ShuffleEnabled() {
			s.ctxmgr.SetShuffle(false, cur)
		} else if !s.ctxmgr.SetShuffle(true, cur) {
			// Empty context: the toggle is reverted rather than
			// leaving shuffle pointing at nothing.
			return
		}
		s.syncFilterFlags()
		if s.snap.NowPlaying == nil {
			return
		}
		elapsed := s.snap.Elapsed
		wasPlaying := s.snap.IsPlaying
		s.beginUserChange()
		src := s.ctxmgr.Tracks()
		batch := queuesync.InitialBatch(src, cur)
		start := library.IndexOfTrack(batch, cur)
		if start < 0 {
			start = 0
		}
		gen := s.gen
		go s.startPlayback(gen, batch, start, elapsed, wasPlaying, s.snap.RepeatMode.Remote())
	})
}

// ToggleRepeat cycles Off -> All -> One -> Off.
func (s *serviceImpl) ToggleRepeat() {
	s.enqueue(func() {
		s.applyRepeat(s.snap.RepeatMode.Next())
	})
}

// SetRepeatMode sets the repeat mode directly.
func (s *serviceImpl) SetRepeatMode(mode RepeatMode) {
	s.enqueue(func() {
		s.applyRepeat(mode)
	})
}

func (s *serviceImpl) applyRepeat(mode RepeatMode) {
	if s.snap.RepeatMode == mode {
		return
	}
	s.snap.RepeatMode = mode
	s.publish()
	s.sendMode(s.modeEvent())
	go func() {
		ctx, cancel := s.opCtx()
		defer cancel()
		if err := s.provider.SetSystemRepeatMode(ctx, mode.Remote()); err != nil {
			s.log.Warn("system repeat mode rejected", "error", err)
		}
	}()
}

// ToggleArtistFilter narrows the context to the playing track's artist,
// or restores the saved context when the filter is already active.
func (s *serviceImpl) ToggleArtistFilter() {
	s.enqueue(func() {
		s.toggleFilter(playctx.FilterArtist)
	})
}

// ToggleAlbumFilter narrows the context to the playing track's album
// (artist and album both, to disambiguate same-named albums), or
// restores the saved context when already active.
func (s *serviceImpl) ToggleAlbumFilter() {
	s.enqueue(func() {
		s.toggleFilter(playctx.FilterAlbum)
	})
}

func (s *serviceImpl) toggleFilter(which playctx.Filter) {
	if s.ctxmgr.Filter() == which {
		s.ctxmgr.DisableFilter(which)
	} else {
		cur := s.snap.NowPlaying
		if cur == nil {
			return // filters need a reference track
		}
		var ok bool
		if which == playctx.FilterArtist {
			ok = s.ctxmgr.EnableArtistFilter(*cur)
		} else {
			ok = s.ctxmgr.EnableAlbumFilter(*cur)
		}
		if !ok {
			s.log.Warn("filter produced no tracks", "filter", which.String())
		}
	}
	if s.ctxmgr.ShuffleEnabled() {
		s.ctxmgr.Reshuffle(s.currentOrZero())
	}
	s.syncFilterFlags()
}
