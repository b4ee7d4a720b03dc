// internal/playback/service_impl.go
package playback

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/playctx"
	"github.com/llehouerou/cadence/internal/queuesync"
	"github.com/llehouerou/cadence/internal/remote"
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

const commandBufferSize = 64

// previousRestartThreshold is the elapsed time beyond which Previous
// restarts the current track instead of going back.
const previousRestartThreshold = 3 * time.Second

// Timings groups the coordinator's debounce and guard windows.
// Production uses DefaultTimings; tests shrink them.
type Timings struct {
	// QueueDebounce coalesces remote queue-change bursts into one resync.
	QueueDebounce time.Duration
	// UserChangeCooldown suppresses resync after a user-initiated track
	// change, so stale remote state cannot overwrite the optimistic update.
	UserChangeCooldown time.Duration
	// SeekGuard keeps the position poller from clobbering a fresh seek.
	SeekGuard time.Duration
	// PollInterval drives elapsed-time updates while playing.
	PollInterval time.Duration
	// PublishDelta is the minimum elapsed-time movement worth publishing.
	PublishDelta time.Duration
	// EndOfTrackWindow is how close to the end repeat handling kicks in.
	EndOfTrackWindow time.Duration
	// RemoteTimeout bounds every remote provider call.
	RemoteTimeout time.Duration
}

// DefaultTimings returns the production windows.
func DefaultTimings() Timings {
	return Timings{
		QueueDebounce:      150 * time.Millisecond,
		UserChangeCooldown: 500 * time.Millisecond,
		SeekGuard:          300 * time.Millisecond,
		PollInterval:       750 * time.Millisecond,
		PublishDelta:       500 * time.Millisecond,
		EndOfTrackWindow:   1500 * time.Millisecond,
		RemoteTimeout:      5 * time.Second,
	}
}

// Option configures the service.
type Option func(*serviceImpl)

// WithTimings overrides the debounce and guard windows.
func WithTimings(t Timings) Option {
	return func(s *serviceImpl) { s.timings = t }
}

// WithRand injects the shuffle random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *serviceImpl) { s.rng = rng }
}

// WithFetchLimit caps the number of songs fetched from the provider
// library (0 means no limit).
func WithFetchLimit(limit int) Option {
	return func(s *serviceImpl) { s.fetchLimit = limit }
}

type serviceImpl struct {
	log       *slog.Logger
	provider  remote.Provider
	rqueue    remote.Queue
	transport remote.Transport
	timings   Timings
	rng       *rand.Rand

	fetchLimit int

	ctxmgr *playctx.Manager
	index  *library.Index

	// Loop-confined state: touched only from run().
	tracks          []library.Track
	snap            Snapshot
	gen             uint64
	userChangeUntil time.Time
	seekGuardUntil  time.Time
	refillInFlight  bool
	pollInFlight    bool
	pendingLocal    *library.Track
	resyncTimer     *time.Timer

	published Snapshot
	pubMu     sync.RWMutex

	subs   []*Subscription
	subsMu sync.RWMutex

	commands chan func()
	done     chan struct{}
	closed   bool
	closeMu  sync.Mutex
	wg       sync.WaitGroup
}

// New creates a playback coordinator over the given provider and
// starts its event-processing loop.
func New(provider remote.Provider, log *slog.Logger, opts ...Option) Service {
	if log == nil {
		log = slog.Default()
	}
	s := &serviceImpl{
		log:       log,
		provider:  provider,
		rqueue:    provider.Queue(),
		transport: provider.Transport(),
		timings:   DefaultTimings(),
		index:     library.NewIndex(),
		commands:  make(chan func(), commandBufferSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctxmgr = playctx.New(s.rng)
	s.wg.Add(1)
	go s.run()
	return s
}

// run is the single event-processing loop. All mutable coordinator
// state is confined to this goroutine; the two remote notification
// streams, the position poller, and posted commands are the only
// inputs.
func (s *serviceImpl) run() {
	defer s.wg.Done()
	poll := time.NewTicker(s.timings.PollInterval)
	defer poll.Stop()

	queueCh := s.rqueue.Changes()
	stateCh := s.transport.StateChanges()

	for {
		select {
		case <-s.done:
			return
		case fn := <-s.commands:
			fn()
		case st := <-stateCh:
			s.handleTransportState(st)
		case <-queueCh:
			s.scheduleResync()
		case <-poll.C:
			s.pollPosition()
		}
	}
}

// enqueue posts fn into the event loop. Returns false when the service
// is closed.
func (s *serviceImpl) enqueue(fn func()) bool {
	select {
	case s.commands <- fn:
		return true
	case <-s.done:
		return false
	}
}

// call posts fn and waits for the loop to execute it.
func (s *serviceImpl) call(fn func()) bool {
	ran := make(chan struct{})
	if !s.enqueue(func() {
		fn()
		close(ran)
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-s.done:
		return false
	}
}

func (s *serviceImpl) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timings.RemoteTimeout)
}

// --- Library lifecycle ---

// LoadLibrary authorizes against the provider and loads the library.
// A denied authorization leaves the library empty and is not an error;
// a fetch failure leaves the library empty and is returned (the user
// must re-trigger, there is no automatic retry).
func (s *serviceImpl) LoadLibrary(ctx context.Context) error {
	status, err := s.provider.Authorize(ctx)
	if err != nil {
		return err
	}
	if status != remote.AuthAuthorized {
		s.log.Warn("library authorization denied")
		s.installLibrary(nil)
		return nil
	}
	songs, err := s.provider.FetchLibrary(ctx, s.fetchLimit)
	if err != nil {
		s.log.Error("library fetch failed", "error", err)
		return err
	}
	tracks := library.FromSongs(songs)
	s.installLibrary(tracks)
	s.log.Info("library loaded", "tracks", len(tracks))
	return nil
}

func (s *serviceImpl) installLibrary(tracks []library.Track) {
	s.call(func() {
		s.tracks = tracks
		s.index.Build(tracks)
		s.ctxmgr.SetLibrary(tracks)
		if s.ctxmgr.ShuffleEnabled() {
			s.ctxmgr.Reshuffle(s.currentOrZero())
		}
		s.syncFilterFlags()
	})
}

// Library returns the canonical library in its current order.
func (s *serviceImpl) Library() []library.Track {
	var out []library.Track
	s.call(func() {
		out = make([]library.Track, len(s.tracks))
		copy(out, s.tracks)
	})
	return out
}

// Search returns the library tracks matching query, in the current
// library order. The result is a display list; playing a track from it
// passes the same slice back through PlayTrack as the explicit context.
func (s *serviceImpl) Search(query string) []library.Track {
	var out []library.Track
	s.call(func() {
		out = library.Search(s.tracks, query)
	})
	return out
}

// SetSortOrder re-sorts the canonical library and rebuilds the lookup
// index. The active context resets to the newly ordered library.
func (s *serviceImpl) SetSortOrder(field library.SortField, dir library.SortDirection) {
	s.enqueue(func() {
		s.tracks = library.Sort(s.tracks, field, dir)
		s.index.Build(s.tracks)
		s.ctxmgr.SetLibrary(s.tracks)
		if s.ctxmgr.ShuffleEnabled() {
			s.ctxmgr.Reshuffle(s.currentOrZero())
		}
		s.syncFilterFlags()
		s.sendSort(SortChange{Field: field, Direction: dir})
	})
}

// ContextTracks returns the effective playback context.
func (s *serviceImpl) ContextTracks() []library.Track {
	var out []library.Track
	s.call(func() {
		src := s.ctxmgr.Tracks()
		out = make([]library.Track, len(src))
		copy(out, src)
	})
	return out
}

// --- State queries ---

// Snapshot returns the last published projection.
func (s *serviceImpl) Snapshot() Snapshot {
	s.pubMu.RLock()
	defer s.pubMu.RUnlock()
	return s.published
}

// --- Remote notification handling ---

func (s *serviceImpl) handleTransportState(st remote.PlayState) {
	s.setPlaying(st == remote.Playing)
}

// scheduleResync coalesces queue-change bursts into a single resync.
// Rapid successive notifications fire during track transitions; only
// the last one within the debounce window triggers work.
func (s *serviceImpl) scheduleResync() {
	if s.resyncTimer != nil {
		s.resyncTimer.Reset(s.timings.QueueDebounce)
		return
	}
	s.resyncTimer = time.AfterFunc(s.timings.QueueDebounce, func() {
		s.enqueue(s.resync)
	})
}

// resync reconciles the published snapshot with actual remote queue
// state, then re-evaluates refill. Resolution is suppressed while a
// user-initiated change is in flight so stale remote state cannot
// overwrite the optimistic update mid-transition.
func (s *serviceImpl) resync() {
	defer s.checkRefill()

	if time.Now().Before(s.userChangeUntil) {
		return
	}
	entries := s.rqueue.Entries()
	cur := s.rqueue.CurrentIndex()
	if cur < 0 || cur >= len(entries) {
		return
	}
	song := entries[cur]
	track := s.resolveSong(song)
	if !sameTrack(s.snap.NowPlaying, &track) {
		s.pendingLocal = nil
		s.setNowPlayingTrack(track)
		if s.ctxmgr.ShuffleEnabled() {
			s.ctxmgr.Reshuffle(track)
		}
	}
	if song.Duration > 0 && s.snap.Duration != song.Duration {
		s.snap.Duration = song.Duration
		s.publish()
	}
}

// resolveSong maps a remote queue entry onto a library track:
// identifier first, normalized key second. An unresolved entry yields
// a transient track synthesized from the remote metadata, which is
// not inserted into the index.
func (s *serviceImpl) resolveSong(song remote.Song) library.Track {
	if pos, ok := s.index.ByRemoteID(song.ID); ok {
		return s.tracks[pos]
	}
	if pos, ok := s.index.ByKey(song.Title, song.Artist, song.Album); ok {
		return s.tracks[pos]
	}
	return library.FromSong(song)
}

// --- Position polling ---

// pollPosition reads the remote elapsed time. The read itself runs in
// its own goroutine and posts the result back, so a slow remote never
// stalls the event loop; at most one read is in flight, extra ticks
// are dropped.
func (s *serviceImpl) pollPosition() {
	if !s.snap.IsPlaying || s.pollInFlight {
		return
	}
	now := time.Now()
	if now.Before(s.seekGuardUntil) || now.Before(s.userChangeUntil) {
		return
	}
	s.pollInFlight = true
	gen := s.gen
	go func() {
		ctx, cancel := s.opCtx()
		pos, err := s.transport.PlaybackTime(ctx)
		cancel()
		s.enqueue(func() {
			s.pollInFlight = false
			if err != nil {
				s.log.Warn("playback time read failed", "error", err)
				return
			}
			s.applyPolledPosition(gen, pos)
		})
	}()
}

// applyPolledPosition folds a completed position read into the
// snapshot. The read raced user actions, so the guards are re-checked
// here: a stale generation or a fresh seek/user change discards it.
func (s *serviceImpl) applyPolledPosition(gen uint64, pos time.Duration) {
	if gen != s.gen || !s.snap.IsPlaying {
		return
	}
	now := time.Now()
	if now.Before(s.seekGuardUntil) || now.Before(s.userChangeUntil) {
		return
	}
	delta := pos - s.snap.Elapsed
	if delta < 0 {
		delta = -delta
	}
	if delta >= s.timings.PublishDelta {
		s.snap.Elapsed = pos
		s.publish()
		s.sendPosition(PositionChange{Elapsed: pos, Duration: s.snap.Duration})
	}
	s.handleTrackEnding(pos)
}

// handleTrackEnding applies repeat behavior near the end of a track.
// Repeat-one restarts the current track. Repeat-all wraps to the head
// of a small context here; large contexts wrap through the queue
// synchronizer's refill instead.
func (s *serviceImpl) handleTrackEnding(pos time.Duration) {
	d := s.snap.Duration
	if d <= 0 || d-pos > s.timings.EndOfTrackWindow {
		return
	}
	switch s.snap.RepeatMode {
	case RepeatOne:
		s.repeatCurrent()
	case RepeatAll:
		src := s.ctxmgr.Tracks()
		if len(src) == 0 || len(src) > queuesync.SmallContextLimit || s.snap.NowPlaying == nil {
			return
		}
		if library.IndexOfTrack(src, *s.snap.NowPlaying) == len(src)-1 {
			s.playTrack(src[0])
		}
	case RepeatOff:
	}
}

// repeatCurrent pauses, rewinds, and resumes the current track.
func (s *serviceImpl) repeatCurrent() {
	s.beginUserChange()
	s.snap.Elapsed = 0
	s.publish()
	s.sendPosition(PositionChange{Elapsed: 0, Duration: s.snap.Duration})
	gen := s.gen
	go func() {
		ctx, cancel := s.opCtx()
		defer cancel()
		err := s.transport.Pause(ctx)
		if err == nil {
			err = s.transport.SetPlaybackTime(ctx, 0)
		}
		if err == nil {
			err = s.transport.Play(ctx)
		}
		s.enqueue(func() {
			if gen != s.gen {
				return
			}
			if err != nil {
				s.log.Warn("repeat-one restart failed", "error", err)
				s.sendError(ErrorEvent{Operation: "repeat", Err: err})
			}
		})
	}()
}

// --- Queue refill ---

// checkRefill re-evaluates whether the remote queue needs more tracks.
// At most one refill is in flight; extra requests are dropped outright
// rather than queued, so a burst of notifications cannot produce
// duplicate tail-appends.
func (s *serviceImpl) checkRefill() {
	entries := s.rqueue.Entries()
	cur := s.rqueue.CurrentIndex()
	source := s.ctxmgr.Tracks()
	if !queuesync.NeedsRefill(entries, cur, len(source)) {
		return
	}
	if s.refillInFlight {
		return
	}
	batch, err := queuesync.PlanRefill(entries, source, s.snap.RepeatMode == RepeatAll)
	if err != nil {
		// Recoverable anomaly: the next queue-change notification
		// retries from current remote state.
		s.log.Warn("refill skipped", "reason", err)
		return
	}
	if len(batch) == 0 {
		return
	}
	tail := entries[len(entries)-1]
	s.refillInFlight = true
	go s.appendBatch(tail, batch)
}

// appendBatch appends a refill batch to the remote queue tail. The
// captured tail is re-validated first: a foreground queue replace
// invalidates the plan, in which case the append is abandoned and the
// next refill check starts over from current remote state.
func (s *serviceImpl) appendBatch(tail remote.Song, batch []library.Track) {
	var err error
	current := s.rqueue.Entries()
	if len(current) > 0 {
		last := current[len(current)-1]
		if last.ID == tail.ID && last.Title == tail.Title {
			ctx, cancel := s.opCtx()
			err = s.rqueue.Append(ctx, library.Songs(batch))
			cancel()
		}
	}
	s.enqueue(func() {
		s.refillInFlight = false
		if err != nil {
			s.log.Warn("queue refill failed", "error", err)
			s.sendError(ErrorEvent{Operation: "refill", Err: err})
		}
	})
}

// --- Snapshot publishing ---

// publish copies the loop-confined snapshot into the shared projection.
func (s *serviceImpl) publish() {
	s.pubMu.Lock()
	s.published = s.snap
	s.pubMu.Unlock()
}

func (s *serviceImpl) setPlaying(playing bool) {
	if s.snap.IsPlaying == playing {
		return
	}
	s.snap.IsPlaying = playing
	s.publish()
	s.sendState(StateChange{IsPlaying: playing})
}

func (s *serviceImpl) setNowPlayingTrack(track library.Track) {
	prev := s.snap.NowPlaying
	t := track
	s.snap.NowPlaying = &t
	s.snap.Elapsed = 0
	if track.Duration > 0 {
		s.snap.Duration = track.Duration
	}
	s.publish()
	s.sendTrack(TrackChange{Previous: prev, Current: &t})
}

func (s *serviceImpl) syncFilterFlags() {
	artist := s.ctxmgr.Filter() == playctx.FilterArtist
	album := s.ctxmgr.Filter() == playctx.FilterAlbum
	shuffle := s.ctxmgr.ShuffleEnabled()
	if s.snap.ArtistFilter == artist && s.snap.AlbumFilter == album && s.snap.Shuffle == shuffle {
		return
	}
	s.snap.ArtistFilter = artist
	s.snap.AlbumFilter = album
	s.snap.Shuffle = shuffle
	s.publish()
	s.sendMode(s.modeEvent())
}

func (s *serviceImpl) modeEvent() ModeChange {
	return ModeChange{
		RepeatMode:   s.snap.RepeatMode,
		Shuffle:      s.snap.Shuffle,
		ArtistFilter: s.snap.ArtistFilter,
		AlbumFilter:  s.snap.AlbumFilter,
	}
}

func (s *serviceImpl) currentOrZero() library.Track {
	if s.snap.NowPlaying != nil {
		return *s.snap.NowPlaying
	}
	return library.Track{}
}

// beginUserChange opens a new user-initiated transition: it bumps the
// generation counter so delayed completions of older transitions are
// discarded, and starts the resync cooldown window.
func (s *serviceImpl) beginUserChange() {
	s.gen++
	s.userChangeUntil = time.Now().Add(s.timings.UserChangeCooldown)
}

// --- Event fan-out ---

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

func (s *serviceImpl) sendState(e StateChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendState(e)
	}
}

func (s *serviceImpl) sendTrack(e TrackChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendTrack(e)
	}
}

func (s *serviceImpl) sendPosition(e PositionChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendPosition(e)
	}
}

func (s *serviceImpl) sendMode(e ModeChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendMode(e)
	}
}

func (s *serviceImpl) sendSort(e SortChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendSort(e)
	}
}

func (s *serviceImpl) sendError(e ErrorEvent) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendError(e)
	}
}

// --- Lifecycle ---

// Close stops the event loop and releases the provider.
func (s *serviceImpl) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.closeMu.Unlock()

	s.wg.Wait()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return s.provider.Close()
}
