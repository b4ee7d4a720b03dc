package remote

import (
	"context"
	"sync"
	"time"
)

const mockSignalBuffer = 16

// MockProvider is a test double for Provider.
type MockProvider struct {
	mu         sync.Mutex
	auth       AuthStatus
	authErr    error
	songs      []Song
	fetchErr   error
	fetchCalls []int
	repeatSet  []RepeatMode
	queue      *MockQueue
	transport  *MockTransport
	closed     bool
}

// NewMockProvider creates a mock provider with an empty library.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		auth:      AuthAuthorized,
		queue:     NewMockQueue(),
		transport: NewMockTransport(),
	}
}

func (p *MockProvider) Authorize(_ context.Context) (AuthStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.auth, p.authErr
}

func (p *MockProvider) FetchLibrary(_ context.Context, limit int) ([]Song, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls = append(p.fetchCalls, limit)
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	songs := p.songs
	if limit > 0 && limit < len(songs) {
		songs = songs[:limit]
	}
	out := make([]Song, len(songs))
	copy(out, songs)
	return out, nil
}

func (p *MockProvider) Queue() Queue         { return p.queue }
func (p *MockProvider) Transport() Transport { return p.transport }

func (p *MockProvider) SetSystemRepeatMode(_ context.Context, mode RepeatMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeatSet = append(p.repeatSet, mode)
	return nil
}

func (p *MockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Test helpers

func (p *MockProvider) SetAuth(s AuthStatus)      { p.mu.Lock(); p.auth = s; p.mu.Unlock() }
func (p *MockProvider) SetAuthError(err error)    { p.mu.Lock(); p.authErr = err; p.mu.Unlock() }
func (p *MockProvider) SetSongs(songs []Song)     { p.mu.Lock(); p.songs = songs; p.mu.Unlock() }
func (p *MockProvider) SetFetchError(err error)   { p.mu.Lock(); p.fetchErr = err; p.mu.Unlock() }
func (p *MockProvider) MockQueue() *MockQueue     { return p.queue }
func (p *MockProvider) MockTransport() *MockTransport {
	return p.transport
}

func (p *MockProvider) RepeatModesSet() []RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RepeatMode, len(p.repeatSet))
	copy(out, p.repeatSet)
	return out
}

// MockQueue is a test double for Queue.
type MockQueue struct {
	mu           sync.Mutex
	entries      []Song
	current      int
	replaceErr   error
	appendErr    error
	replaceCalls int
	appendCalls  [][]Song
	changes      chan struct{}
}

// NewMockQueue creates an empty mock queue.
func NewMockQueue() *MockQueue {
	return &MockQueue{
		current: -1,
		changes: make(chan struct{}, mockSignalBuffer),
	}
}

func (q *MockQueue) Replace(_ context.Context, songs []Song, startAt int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.replaceCalls++
	if q.replaceErr != nil {
		return q.replaceErr
	}
	q.entries = make([]Song, len(songs))
	copy(q.entries, songs)
	q.current = -1
	if startAt >= 0 && startAt < len(q.entries) {
		q.current = startAt
	}
	q.signalLocked()
	return nil
}

func (q *MockQueue) Append(_ context.Context, songs []Song) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	recorded := make([]Song, len(songs))
	copy(recorded, songs)
	q.appendCalls = append(q.appendCalls, recorded)
	if q.appendErr != nil {
		return q.appendErr
	}
	q.entries = append(q.entries, recorded...)
	q.signalLocked()
	return nil
}

func (q *MockQueue) Entries() []Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Song, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *MockQueue) CurrentIndex() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

func (q *MockQueue) Changes() <-chan struct{} { return q.changes }

func (q *MockQueue) signalLocked() {
	select {
	case q.changes <- struct{}{}:
	default:
	}
}

// Test helpers

func (q *MockQueue) SetReplaceError(err error) { q.mu.Lock(); q.replaceErr = err; q.mu.Unlock() }
func (q *MockQueue) SetAppendError(err error)  { q.mu.Lock(); q.appendErr = err; q.mu.Unlock() }

func (q *MockQueue) ReplaceCalls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.replaceCalls
}

func (q *MockQueue) AppendCalls() [][]Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]Song, len(q.appendCalls))
	copy(out, q.appendCalls)
	return out
}

// SimulateAdvance moves the cursor forward one entry and signals a
// queue change, as the remote player does when a track finishes.
func (q *MockQueue) SimulateAdvance() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current < len(q.entries)-1 {
		q.current++
	}
	q.signalLocked()
}

// SimulateCursor moves the cursor to index and signals a queue change.
func (q *MockQueue) SimulateCursor(index int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current = index
	q.signalLocked()
}

// MockTransport is a test double for Transport.
type MockTransport struct {
	mu            sync.Mutex
	state         PlayState
	position      time.Duration
	playErr       error
	skipErr       error
	seekErr       error
	playCalls     int
	pauseCalls    int
	nextCalls     int
	previousCalls int
	seekCalls     []time.Duration
	positionDelay time.Duration
	stateCh       chan PlayState
}

// NewMockTransport creates a stopped mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		state:   Stopped,
		stateCh: make(chan PlayState, mockSignalBuffer),
	}
}

func (t *MockTransport) Play(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playCalls++
	if t.playErr != nil {
		return t.playErr
	}
	t.setStateLocked(Playing)
	return nil
}

func (t *MockTransport) Pause(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseCalls++
	t.setStateLocked(Paused)
	return nil
}

func (t *MockTransport) SkipNext(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextCalls++
	return t.skipErr
}

func (t *MockTransport) SkipPrevious(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previousCalls++
	return t.skipErr
}

func (t *MockTransport) PlaybackTime(_ context.Context) (time.Duration, error) {
	t.mu.Lock()
	delay := t.positionDelay
	t.mu.Unlock()
	if delay > 0 {
		// Simulated network latency; deliberately outside the lock so a
		// stalled read does not block other transport calls.
		time.Sleep(delay)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position, nil
}

func (t *MockTransport) SetPlaybackTime(_ context.Context, pos time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seekCalls = append(t.seekCalls, pos)
	if t.seekErr != nil {
		return t.seekErr
	}
	t.position = pos
	return nil
}

func (t *MockTransport) StateChanges() <-chan PlayState { return t.stateCh }

func (t *MockTransport) setStateLocked(s PlayState) {
	if t.state == s {
		return
	}
	t.state = s
	select {
	case t.stateCh <- s:
	default:
	}
}

// Test helpers

func (t *MockTransport) SetPlayError(err error) { t.mu.Lock(); t.playErr = err; t.mu.Unlock() }
func (t *MockTransport) SetSkipError(err error) { t.mu.Lock(); t.skipErr = err; t.mu.Unlock() }
func (t *MockTransport) SetSeekError(err error) { t.mu.Lock(); t.seekErr = err; t.mu.Unlock() }

func (t *MockTransport) SetPosition(pos time.Duration) {
	t.mu.Lock()
	t.position = pos
	t.mu.Unlock()
}

// SetPositionDelay makes every PlaybackTime call stall for d,
// simulating a slow or hung remote.
func (t *MockTransport) SetPositionDelay(d time.Duration) {
	t.mu.Lock()
	t.positionDelay = d
	t.mu.Unlock()
}

func (t *MockTransport) State() PlayState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *MockTransport) PlayCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playCalls
}

func (t *MockTransport) PauseCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pauseCalls
}

func (t *MockTransport) NextCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextCalls
}

func (t *MockTransport) PreviousCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.previousCalls
}

func (t *MockTransport) SeekCalls() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Duration, len(t.seekCalls))
	copy(out, t.seekCalls)
	return out
}

// SimulateState forces a transport state and emits a change event.
func (t *MockTransport) SimulateState(s PlayState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStateLocked(s)
}

// Verify mocks implement the contracts at compile time.
var (
	_ Provider  = (*MockProvider)(nil)
	_ Queue     = (*MockQueue)(nil)
	_ Transport = (*MockTransport)(nil)
)
