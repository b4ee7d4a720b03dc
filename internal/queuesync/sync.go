// Package queuesync computes the bounded track batches handed to the
// remote playback queue: the initial batch when playback starts in a
// context, and the incremental refills that keep the queue ahead of
// the cursor as playback advances through large contexts.
//
// Everything here is pure computation over snapshots. The coordinator
// owns the remote I/O and the single-flight discipline around it.
package queuesync

import (
	"errors"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/remote"
)

const (
	// RefillBatchSize is the number of tracks appended per refill.
	RefillBatchSize = 75
	// QueueThreshold is the remaining-entry count below which a
	// refill is due.
	QueueThreshold = 20
	// SmallContextLimit splits the policy: contexts at or below this
	// size are enqueued whole up front and never refilled, the rest
	// are streamed incrementally.
	SmallContextLimit = 100
)

// ErrTailNotInSource is returned when the remote queue's tail entry
// cannot be located in the source context. A replace may have raced
// the refill; the next queue-change notification retries from current
// remote state, so this is a recoverable anomaly, not a failure.
var ErrTailNotInSource = errors.New("queue tail not found in source context")

// InitialBatch returns the tracks enqueued when playback starts at
// start within context. Small contexts are returned whole so that
// previous/next can reach every track; large contexts get the slice
// from start's position spanning up to SmallContextLimit tracks, and
// rely on refill to extend it.
func InitialBatch(context []library.Track, start library.Track) []library.Track {
	if len(context) <= SmallContextLimit {
		out := make([]library.Track, len(context))
		copy(out, context)
		return out
	}
	pos := library.IndexOfTrack(context, start)
	if pos < 0 {
		pos = 0
	}
	end := pos + SmallContextLimit
	if end > len(context) {
		end = len(context)
	}
	out := make([]library.Track, end-pos)
	copy(out, context[pos:end])
	return out
}

// NeedsRefill reports whether the remote queue is running low.
// Always false when nothing is playing or when the source context is
// small, since small contexts are enqueued whole up front.
func NeedsRefill(entries []remote.Song, currentIndex, sourceLen int) bool {
	if currentIndex < 0 || currentIndex >= len(entries) {
		return false
	}
	if sourceLen <= SmallContextLimit {
		return false
	}
	remaining := len(entries) - (currentIndex + 1)
	return remaining <= QueueThreshold
}

// PlanRefill computes the next batch to append to the remote queue's
// tail. It locates the queue's last entry within source (remote
// identifier first, normalized-key fallback) and returns the
// following RefillBatchSize tracks. At the end of source the batch
// wraps to the start when wrap is set (repeat-all) and is empty
// otherwise. Returns ErrTailNotInSource when the tail entry is not in
// source.
func PlanRefill(entries []remote.Song, source []library.Track, wrap bool) ([]library.Track, error) {
	if len(entries) == 0 || len(source) == 0 {
		return nil, nil
	}
	tail := entries[len(entries)-1]
	pos := library.IndexOf(source, tail)
	if pos < 0 {
		return nil, ErrTailNotInSource
	}
	if pos == len(source)-1 {
		if !wrap {
			return nil, nil
		}
		n := min(RefillBatchSize, len(source))
		out := make([]library.Track, n)
		copy(out, source[:n])
		return out, nil
	}
	end := min(pos+1+RefillBatchSize, len(source))
	out := make([]library.Track, end-pos-1)
	copy(out, source[pos+1:end])
	return out, nil
}
