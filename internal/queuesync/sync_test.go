package queuesync

import (
	"fmt"
	"testing"

	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/remote"
)

func makeContext(n int) []library.Track {
	tracks := make([]library.Track, n)
	for i := range tracks {
		tracks[i] = library.Track{
			ID:       fmt.Sprintf("id-%d", i),
			Title:    fmt.Sprintf("Title %d", i),
			Artist:   "Artist",
			Album:    "Album",
			RemoteID: fmt.Sprintf("remote-%d", i),
		}
	}
	return tracks
}

func songs(tracks []library.Track) []remote.Song {
	return library.Songs(tracks)
}

func TestInitialBatch_SmallContextReturnsAll(t *testing.T) {
	ctx := makeContext(100)

	batch := InitialBatch(ctx, ctx[60])

	if len(batch) != 100 {
		t.Fatalf("len(batch) = %d, want full context", len(batch))
	}
	if batch[0].ID != ctx[0].ID {
		t.Error("small-context batch should start at context head")
	}
}

func TestInitialBatch_LargeContextStartsAtTrack(t *testing.T) {
	ctx := makeContext(500)

	batch := InitialBatch(ctx, ctx[42])

	if len(batch) != SmallContextLimit {
		t.Fatalf("len(batch) = %d, want %d", len(batch), SmallContextLimit)
	}
	if batch[0].ID != ctx[42].ID {
		t.Errorf("batch[0] = %s, want %s", batch[0].ID, ctx[42].ID)
	}
}

func TestInitialBatch_LargeContextNearTail(t *testing.T) {
	ctx := makeContext(150)

	batch := InitialBatch(ctx, ctx[120])

	if len(batch) != 30 {
		t.Fatalf("len(batch) = %d, want min(100, remaining) = 30", len(batch))
	}
	if batch[0].ID != ctx[120].ID {
		t.Errorf("batch[0] = %s, want %s", batch[0].ID, ctx[120].ID)
	}
}

func TestInitialBatch_UnknownStartFallsBackToHead(t *testing.T) {
	ctx := makeContext(200)

	batch := InitialBatch(ctx, library.Track{ID: "nope", Title: "Unknown"})

	if len(batch) != SmallContextLimit {
		t.Fatalf("len(batch) = %d, want %d", len(batch), SmallContextLimit)
	}
	if batch[0].ID != ctx[0].ID {
		t.Error("unknown start should slice from the context head")
	}
}

func TestNeedsRefill(t *testing.T) {
	large := makeContext(250)

	tests := []struct {
		name      string
		entries   []remote.Song
		current   int
		sourceLen int
		want      bool
	}{
		{"no current entry", songs(large[:50]), -1, 250, false},
		{"small source never refills", songs(large[:50]), 48, 100, false},
		{"plenty remaining", songs(large[:100]), 10, 250, false},
		{"at threshold", songs(large[:100]), 79, 250, true},
		{"below threshold", songs(large[:100]), 95, 250, true},
		{"just above threshold", songs(large[:100]), 78, 250, false},
		{"cursor out of range", songs(large[:50]), 50, 250, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NeedsRefill(tt.entries, tt.current, tt.sourceLen)
			if got != tt.want {
				t.Errorf("NeedsRefill() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanRefill_AppendsAfterTail(t *testing.T) {
	src := makeContext(250)
	entries := songs(src[:100])

	batch, err := PlanRefill(entries, src, false)
	if err != nil {
		t.Fatalf("PlanRefill: %v", err)
	}

	if len(batch) != RefillBatchSize {
		t.Fatalf("len(batch) = %d, want %d", len(batch), RefillBatchSize)
	}
	if batch[0].ID != src[100].ID {
		t.Errorf("batch[0] = %s, want %s", batch[0].ID, src[100].ID)
	}
	if batch[74].ID != src[174].ID {
		t.Errorf("batch[74] = %s, want %s", batch[74].ID, src[174].ID)
	}
}

func TestPlanRefill_ClampsAtSourceEnd(t *testing.T) {
	src := makeContext(250)
	entries := songs(src[:240])

	batch, err := PlanRefill(entries, src, false)
	if err != nil {
		t.Fatalf("PlanRefill: %v", err)
	}
	if len(batch) != 10 {
		t.Fatalf("len(batch) = %d, want 10", len(batch))
	}
}

func TestPlanRefill_EndOfContext_NoRepeat(t *testing.T) {
	src := makeContext(250)
	entries := songs(src) // tail of queue == tail of source

	batch, err := PlanRefill(entries, src, false)
	if err != nil {
		t.Fatalf("PlanRefill: %v", err)
	}
	if len(batch) != 0 {
		t.Errorf("len(batch) = %d, want 0 at end of context", len(batch))
	}
}

func TestPlanRefill_EndOfContext_RepeatAllWraps(t *testing.T) {
	src := makeContext(250)
	entries := songs(src)

	batch, err := PlanRefill(entries, src, true)
	if err != nil {
		t.Fatalf("PlanRefill: %v", err)
	}

	if len(batch) != RefillBatchSize {
		t.Fatalf("len(batch) = %d, want %d", len(batch), RefillBatchSize)
	}
	for i := range batch {
		if batch[i].ID != src[i].ID {
			t.Fatalf("batch[%d] = %s, want %s (wrap to context head)", i, batch[i].ID, src[i].ID)
		}
	}
}

func TestPlanRefill_TailNotInSource(t *testing.T) {
	src := makeContext(250)
	entries := []remote.Song{{ID: "foreign", Title: "Not In Source"}}

	_, err := PlanRefill(entries, src, false)
	if err != ErrTailNotInSource {
		t.Errorf("err = %v, want ErrTailNotInSource", err)
	}
}

func TestPlanRefill_KeyFallbackWithoutRemoteID(t *testing.T) {
	src := makeContext(150)
	// Strip remote IDs from the source entry so matching must go
	// through the normalized key.
	src[99].RemoteID = ""
	tail := remote.Song{Title: "TITLE 99", Artist: "artist", Album: "ALBUM"}

	batch, err := PlanRefill([]remote.Song{tail}, src, false)
	if err != nil {
		t.Fatalf("PlanRefill: %v", err)
	}
	if len(batch) == 0 || batch[0].ID != src[100].ID {
		t.Errorf("key fallback failed, got %d tracks", len(batch))
	}
}

func TestPlanRefill_EmptyInputs(t *testing.T) {
	if batch, err := PlanRefill(nil, makeContext(10), true); err != nil || batch != nil {
		t.Error("empty queue should be a no-op")
	}
	if batch, err := PlanRefill(songs(makeContext(5)), nil, true); err != nil || batch != nil {
		t.Error("empty source should be a no-op")
	}
}
