package playback

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/remote"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func testTimings() Timings {
	return Timings{
		QueueDebounce:      10 * time.Millisecond,
		UserChangeCooldown: 50 * time.Millisecond,
		SeekGuard:          20 * time.Millisecond,
		PollInterval:       15 * time.Millisecond,
		PublishDelta:       time.Millisecond,
		EndOfTrackWindow:   1500 * time.Millisecond,
		RemoteTimeout:      time.Second,
	}
}

func makeSongs(n int) []remote.Song {
	songs := make([]remote.Song, n)
	for i := range songs {
		songs[i] = remote.Song{
			ID:       fmt.Sprintf("remote-%d", i),
			Title:    fmt.Sprintf("Title %d", i),
			Artist:   fmt.Sprintf("Artist %d", i%5),
			Album:    fmt.Sprintf("Album %d", i%8),
			Duration: 3 * time.Minute,
			Handle:   remote.Handle(fmt.Sprintf("handle-%d", i)),
		}
	}
	return songs
}

func newTestService(t *testing.T, n int) (Service, *remote.MockProvider, []library.Track) {
	t.Helper()
	provider := remote.NewMockProvider()
	provider.SetSongs(makeSongs(n))

	svc := New(provider, nil, WithTimings(testTimings()))
	t.Cleanup(func() { _ = svc.Close() })

	require.NoError(t, svc.LoadLibrary(context.Background()))
	lib := svc.Library()
	require.Len(t, lib, n)
	return svc, provider, lib
}

func waitCooldown() {
	time.Sleep(80 * time.Millisecond)
}

func TestLoadLibrary_Denied(t *testing.T) {
	provider := remote.NewMockProvider()
	provider.SetSongs(makeSongs(10))
	provider.SetAuth(remote.AuthDenied)
	svc := New(provider, nil, WithTimings(testTimings()))
	defer svc.Close()

	err := svc.LoadLibrary(context.Background())

	require.NoError(t, err, "denied authorization is an empty-library state, not an error")
	assert.Empty(t, svc.Library())
}

func TestLoadLibrary_FetchError(t *testing.T) {
	provider := remote.NewMockProvider()
	provider.SetFetchError(errors.New("network down"))
	svc := New(provider, nil, WithTimings(testTimings()))
	defer svc.Close()

	err := svc.LoadLibrary(context.Background())

	require.Error(t, err)
	assert.Empty(t, svc.Library())
}

func TestPlayTrack_OptimisticPublishAndQueueReplace(t *testing.T) {
	svc, provider, lib := newTestService(t, 50)

	svc.PlayTrack(lib[5], lib)

	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.NowPlaying != nil && snap.NowPlaying.ID == lib[5].ID && snap.IsPlaying
	}, waitFor, tick, "optimistic snapshot not published")

	queue := provider.MockQueue()
	require.Eventually(t, func() bool {
		return queue.ReplaceCalls() == 1 && provider.MockTransport().PlayCalls() == 1
	}, waitFor, tick)

	// Small context: enqueued whole, cursor at the chosen track.
	assert.Len(t, queue.Entries(), 50)
	assert.Equal(t, 5, queue.CurrentIndex())

	// Repeat mode re-applied after the queue replacement.
	require.Eventually(t, func() bool {
		return len(provider.RepeatModesSet()) >= 1
	}, waitFor, tick)
}

func TestPlayTrack_LargeContextBatch(t *testing.T) {
	svc, provider, lib := newTestService(t, 250)

	svc.PlayTrack(lib[200], lib)

	queue := provider.MockQueue()
	require.Eventually(t, func() bool {
		return queue.ReplaceCalls() == 1
	}, waitFor, tick)

	// min(100, remaining) tracks starting at the requested one.
	entries := queue.Entries()
	require.Len(t, entries, 50)
	assert.Equal(t, lib[200].RemoteID, entries[0].ID)
	assert.Equal(t, 0, queue.CurrentIndex())
}

func TestTransportStateDrivesSnapshot(t *testing.T) {
	svc, provider, lib := newTestService(t, 20)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)

	provider.MockTransport().SimulateState(remote.Paused)

	require.Eventually(t, func() bool {
		return !svc.Snapshot().IsPlaying
	}, waitFor, tick)
}

func TestNext_WhilePlaying_DelegatesToTransport(t *testing.T) {
	svc, provider, lib := newTestService(t, 20)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	replaces := provider.MockQueue().ReplaceCalls()

	svc.Next()

	require.Eventually(t, func() bool {
		return provider.MockTransport().NextCalls() == 1
	}, waitFor, tick)
	assert.Equal(t, replaces, provider.MockQueue().ReplaceCalls(), "native skip must not rebuild the queue")
}

func TestNext_WhilePaused_AdvancesLocallyOnly(t *testing.T) {
	svc, provider, lib := newTestService(t, 20)
	svc.PlayTrack(lib[3], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	provider.MockTransport().SimulateState(remote.Paused)
	require.Eventually(t, func() bool { return !svc.Snapshot().IsPlaying }, waitFor, tick)
	replaces := provider.MockQueue().ReplaceCalls()

	svc.Next()

	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.NowPlaying != nil && snap.NowPlaying.ID == lib[4].ID
	}, waitFor, tick)
	assert.Zero(t, provider.MockTransport().NextCalls())
	assert.Equal(t, replaces, provider.MockQueue().ReplaceCalls())
	assert.False(t, svc.Snapshot().IsPlaying)
}

func TestTogglePlayPause_MaterializesLocalSelection(t *testing.T) {
	svc, provider, lib := newTestService(t, 20)
	svc.PlayTrack(lib[3], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	provider.MockTransport().SimulateState(remote.Paused)
	require.Eventually(t, func() bool { return !svc.Snapshot().IsPlaying }, waitFor, tick)

	svc.Next()
	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.NowPlaying != nil && snap.NowPlaying.ID == lib[4].ID
	}, waitFor, tick)
	replaces := provider.MockQueue().ReplaceCalls()

	svc.TogglePlayPause()

	require.Eventually(t, func() bool {
		return provider.MockQueue().ReplaceCalls() == replaces+1 && svc.Snapshot().IsPlaying
	}, waitFor, tick, "resume after local navigation must rebuild the queue at the selection")
}

func TestPrevious_RestartsAfterThreshold(t *testing.T) {
	svc, provider, lib := newTestService(t, 20)
	svc.PlayTrack(lib[5], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	waitCooldown()

	// Let the poller observe an elapsed time beyond the threshold.
	provider.MockTransport().SetPosition(5 * time.Second)
	require.Eventually(t, func() bool {
		return svc.Snapshot().Elapsed >= 5*time.Second
	}, waitFor, tick)

	svc.Previous()

	require.Eventually(t, func() bool {
		for _, call := range provider.MockTransport().SeekCalls() {
			if call == 0 {
				return true
			}
		}
		return false
	}, waitFor, tick, "previous past 3s should seek to 0")
	assert.Zero(t, provider.MockTransport().PreviousCalls())
}

func TestPrevious_GoesBackEarlyInTrack(t *testing.T) {
	svc, provider, lib := newTestService(t, 20)
	svc.PlayTrack(lib[5], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	waitCooldown()

	provider.MockTransport().SetPosition(time.Second)
	require.Eventually(t, func() bool {
		return svc.Snapshot().Elapsed == time.Second
	}, waitFor, tick)

	svc.Previous()

	require.Eventually(t, func() bool {
		return provider.MockTransport().PreviousCalls() == 1
	}, waitFor, tick)
}

func TestResync_PublishesRemoteCursorTrack(t *testing.T) {
	svc, provider, lib := newTestService(t, 30)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	waitCooldown()

	provider.MockQueue().SimulateCursor(7)

	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.NowPlaying != nil && snap.NowPlaying.RemoteID == lib[7].RemoteID
	}, waitFor, tick)
}

func TestResync_SuppressedDuringUserChange(t *testing.T) {
	svc, provider, lib := newTestService(t, 30)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	waitCooldown()

	// A fresh user action opens a new cooldown window; a stale remote
	// cursor notification inside it must not overwrite the optimistic
	// snapshot.
	svc.PlayTrack(lib[9], lib)
	provider.MockQueue().SimulateCursor(2)

	time.Sleep(30 * time.Millisecond)
	snap := svc.Snapshot()
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, lib[9].ID, snap.NowPlaying.ID)
}

func TestResync_SynthesizesUnknownTrack(t *testing.T) {
	svc, provider, lib := newTestService(t, 10)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	waitCooldown()

	foreign := remote.Song{ID: "foreign-1", Title: "Not In Library", Artist: "Stranger"}
	require.NoError(t, provider.MockQueue().Replace(context.Background(), []remote.Song{foreign}, 0))

	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.NowPlaying != nil && snap.NowPlaying.Title == "Not In Library"
	}, waitFor, tick)
}

func TestRefill_AppendsWhenQueueRunsLow(t *testing.T) {
	svc, provider, lib := newTestService(t, 250)
	svc.PlayTrack(lib[0], lib)
	queue := provider.MockQueue()
	require.Eventually(t, func() bool { return queue.ReplaceCalls() == 1 }, waitFor, tick)
	waitCooldown()

	// Burst of cursor notifications near the threshold: debounced into
	// one resync, and at most one refill in flight.
	queue.SimulateCursor(83)
	queue.SimulateCursor(84)
	queue.SimulateCursor(85)

	require.Eventually(t, func() bool {
		return len(queue.AppendCalls()) == 1
	}, waitFor, tick)

	appended := queue.AppendCalls()[0]
	require.Len(t, appended, 75)
	assert.Equal(t, lib[100].RemoteID, appended[0].ID)
	assert.Equal(t, lib[174].RemoteID, appended[74].ID)

	// Settled queue is long enough again; no second append.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, queue.AppendCalls(), 1)
}

func TestRefill_SmallContextNeverRefills(t *testing.T) {
	svc, provider, lib := newTestService(t, 60)
	svc.PlayTrack(lib[0], lib)
	queue := provider.MockQueue()
	require.Eventually(t, func() bool { return queue.ReplaceCalls() == 1 }, waitFor, tick)
	waitCooldown()

	queue.SimulateCursor(58)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, queue.AppendCalls())
}

func TestToggleShuffle_RebuildsQueueAroundCurrent(t *testing.T) {
	svc, provider, lib := newTestService(t, 40)
	svc.PlayTrack(lib[10], lib)
	queue := provider.MockQueue()
	require.Eventually(t, func() bool { return queue.ReplaceCalls() == 1 }, waitFor, tick)

	svc.ToggleShuffle()

	require.Eventually(t, func() bool {
		return svc.Snapshot().Shuffle && queue.ReplaceCalls() == 2
	}, waitFor, tick)

	ctx := svc.ContextTracks()
	require.Len(t, ctx, 40)
	assert.Equal(t, lib[10].ID, ctx[0].ID, "playing track must be pinned at position 0")

	svc.ToggleShuffle()
	require.Eventually(t, func() bool {
		return !svc.Snapshot().Shuffle && queue.ReplaceCalls() == 3
	}, waitFor, tick)
}

func TestToggleRepeat_Cycles(t *testing.T) {
	svc, provider, _ := newTestService(t, 10)

	svc.ToggleRepeat()
	require.Eventually(t, func() bool {
		return svc.Snapshot().RepeatMode == RepeatAll
	}, waitFor, tick)

	svc.ToggleRepeat()
	require.Eventually(t, func() bool {
		return svc.Snapshot().RepeatMode == RepeatOne
	}, waitFor, tick)

	svc.ToggleRepeat()
	require.Eventually(t, func() bool {
		return svc.Snapshot().RepeatMode == RepeatOff
	}, waitFor, tick)

	// The legacy system-level surface tracks every change.
	require.Eventually(t, func() bool {
		return len(provider.RepeatModesSet()) >= 3
	}, waitFor, tick)
}

func TestToggleFilters_MutuallyExclusive(t *testing.T) {
	svc, _, lib := newTestService(t, 40)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().NowPlaying != nil }, waitFor, tick)

	svc.ToggleArtistFilter()
	require.Eventually(t, func() bool { return svc.Snapshot().ArtistFilter }, waitFor, tick)
	for _, tr := range svc.ContextTracks() {
		assert.Equal(t, lib[0].Artist, tr.Artist)
	}

	svc.ToggleAlbumFilter()
	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.AlbumFilter && !snap.ArtistFilter
	}, waitFor, tick)
	for _, tr := range svc.ContextTracks() {
		assert.Equal(t, lib[0].Album, tr.Album)
	}

	svc.ToggleAlbumFilter()
	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return !snap.AlbumFilter && !snap.ArtistFilter
	}, waitFor, tick)
}

func TestSeek_Validation(t *testing.T) {
	svc, provider, lib := newTestService(t, 10)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool {
		return svc.Snapshot().Duration == 3*time.Minute
	}, waitFor, tick)

	require.Error(t, svc.Seek(-time.Second))
	require.Error(t, svc.Seek(10*time.Minute))

	require.NoError(t, svc.Seek(90*time.Second))
	require.Eventually(t, func() bool {
		return svc.Snapshot().Elapsed == 90*time.Second
	}, waitFor, tick)
	require.Eventually(t, func() bool {
		for _, call := range provider.MockTransport().SeekCalls() {
			if call == 90*time.Second {
				return true
			}
		}
		return false
	}, waitFor, tick)
}

func TestTogglePlayPause_RevertsOnTransportFailure(t *testing.T) {
	svc, provider, lib := newTestService(t, 10)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	provider.MockTransport().SimulateState(remote.Paused)
	require.Eventually(t, func() bool { return !svc.Snapshot().IsPlaying }, waitFor, tick)

	provider.MockTransport().SetPlayError(errors.New("transport gone"))
	sub := svc.Subscribe()

	svc.TogglePlayPause()

	// Optimistic flip, then reverted when the remote call fails.
	require.Eventually(t, func() bool {
		select {
		case e := <-sub.Error:
			return e.Operation == "toggle"
		default:
			return false
		}
	}, waitFor, tick)
	require.Eventually(t, func() bool { return !svc.Snapshot().IsPlaying }, waitFor, tick)
}

func TestRepeatOne_RestartsNearTrackEnd(t *testing.T) {
	svc, provider, lib := newTestService(t, 10)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	svc.SetRepeatMode(RepeatOne)
	require.Eventually(t, func() bool {
		return svc.Snapshot().RepeatMode == RepeatOne
	}, waitFor, tick)
	waitCooldown()

	// Track duration is 3m; put the transport inside the end window.
	provider.MockTransport().SetPosition(3*time.Minute - time.Second)

	require.Eventually(t, func() bool {
		transport := provider.MockTransport()
		if transport.PauseCalls() == 0 {
			return false
		}
		for _, call := range transport.SeekCalls() {
			if call == 0 {
				return true
			}
		}
		return false
	}, waitFor, tick, "repeat-one should pause, rewind, resume")
}

func TestSubscription_TrackEvents(t *testing.T) {
	svc, _, lib := newTestService(t, 10)
	sub := svc.Subscribe()

	svc.PlayTrack(lib[2], lib)

	require.Eventually(t, func() bool {
		select {
		case e := <-sub.TrackChanged:
			return e.Current != nil && e.Current.ID == lib[2].ID
		default:
			return false
		}
	}, waitFor, tick)
}

func TestSearch_ResultServesAsPlayContext(t *testing.T) {
	svc, provider, _ := newTestService(t, 30)

	results := svc.Search("Artist 2")
	require.Len(t, results, 6, "30-track library has 6 tracks by each of 5 artists")

	svc.PlayTrack(results[0], results)

	require.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return snap.NowPlaying != nil && snap.NowPlaying.ID == results[0].ID
	}, waitFor, tick)

	// The search result became the active context: navigation and the
	// remote queue draw from it, not the full library.
	ctx := svc.ContextTracks()
	require.Len(t, ctx, 6)
	for _, tr := range ctx {
		assert.Equal(t, "Artist 2", tr.Artist)
	}
	require.Eventually(t, func() bool {
		return len(provider.MockQueue().Entries()) == 6
	}, waitFor, tick)
}

func TestSearch_NoMatch(t *testing.T) {
	svc, _, _ := newTestService(t, 10)
	assert.Empty(t, svc.Search("no such track"))
}

func TestSetSortOrder_EmitsSortChange(t *testing.T) {
	svc, _, _ := newTestService(t, 10)
	sub := svc.Subscribe()

	svc.SetSortOrder(library.SortByArtist, library.Descending)

	require.Eventually(t, func() bool {
		select {
		case e := <-sub.SortChanged:
			return e.Field == library.SortByArtist && e.Direction == library.Descending
		default:
			return false
		}
	}, waitFor, tick)
}

func TestControls_ResponsiveDuringSlowPositionRead(t *testing.T) {
	svc, provider, lib := newTestService(t, 10)
	svc.PlayTrack(lib[0], lib)
	require.Eventually(t, func() bool { return svc.Snapshot().IsPlaying }, waitFor, tick)
	waitCooldown()

	// Stall every position read well past the poll interval, then give
	// the poller time to have a read in flight.
	provider.MockTransport().SetPositionDelay(600 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	svc.TogglePlayPause()
	require.Eventually(t, func() bool {
		return !svc.Snapshot().IsPlaying
	}, waitFor, tick)

	// The toggle must not wait out the stalled read.
	assert.Less(t, time.Since(start), 300*time.Millisecond,
		"user command stalled behind a slow remote position read")
}

func TestClose_Idempotent(t *testing.T) {
	provider := remote.NewMockProvider()
	svc := New(provider, nil, WithTimings(testTimings()))

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
}
