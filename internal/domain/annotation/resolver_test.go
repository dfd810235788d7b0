package annotation

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakePrimary struct {
	mu    sync.Mutex
	calls [][]string
	data  map[string][]string
	err   error
	gate  chan struct{}
	ctxOK []bool
	panic bool
}

func (f *fakePrimary) LookupBatch(ctx context.Context, ids []string) (map[string][]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	f.ctxOK = append(f.ctxOK, ctx.Err() == nil)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.panic {
		panic("decoder exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]string)
	for _, id := range ids {
		if names, ok := f.data[id]; ok {
			out[id] = names
		}
	}
	return out, nil
}

func (f *fakePrimary) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type mockEntry struct {
	mock.Mock
}

func (m *mockEntry) LookupEntry(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]string), args.Error(1)
}

type memStore struct {
	mu      sync.Mutex
	data    map[string]Annotation
	readErr error
	puts    int
}

func (s *memStore) GetMany(_ context.Context, ids []string) (map[string]Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make(map[string]Annotation)
	for _, id := range ids {
		if a, ok := s.data[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (s *memStore) PutMany(_ context.Context, anns map[string]Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	for id, a := range anns {
		s.data[id] = a
	}
	return nil
}

type countingObserver struct {
	mu                         sync.Mutex
	primaryOK, primaryFail     int
	secondaryOK, secondaryFail int
	cacheHits, storeHits       int
}

func (o *countingObserver) PrimaryCall(ok bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		o.primaryOK++
	} else {
		o.primaryFail++
	}
}

func (o *countingObserver) SecondaryCall(ok bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		o.secondaryOK++
	} else {
		o.secondaryFail++
	}
}

func (o *countingObserver) CacheHits(n int) { o.mu.Lock(); o.cacheHits += n; o.mu.Unlock() }
func (o *countingObserver) StoreHits(n int) { o.mu.Lock(); o.storeHits += n; o.mu.Unlock() }

func testConfig() ResolverConfig {
	return ResolverConfig{BatchSize: 100}
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// tests
// ─────────────────────────────────────────────────────────────────────────────

func TestResolver_PrimaryClassifies(t *testing.T) {
	primary := &fakePrimary{data: map[string][]string{
		"1ABC": {"Homo sapiens", "Homo sapiens"},
		"2DEF": {"Escherichia coli"},
		"3GHI": {},
	}}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary))

	got := r.Resolve(context.Background(), []string{"1ABC", "2DEF", "3GHI", "4JKL"})
	require.Len(t, got, 4)
	assert.Equal(t, []string{"Homo sapiens"}, got["1ABC"].Organisms)
	assert.True(t, got["1ABC"].IsTarget)
	assert.False(t, got["2DEF"].IsTarget)
	assert.True(t, got["3GHI"].IsUnknown())
	assert.True(t, got["4JKL"].IsUnknown(), "identifier missing from the response")
	assert.Equal(t, OriginPrimary, got["4JKL"].Origin)
	assert.Equal(t, 1, primary.callCount())
}

func TestResolver_CacheIdempotence(t *testing.T) {
	primary := &fakePrimary{data: map[string][]string{"1ABC": {"Mus musculus"}}}
	obs := &countingObserver{}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary), WithObserver(obs))

	first := r.Resolve(context.Background(), []string{"1ABC", "9ZZZ"})
	second := r.Resolve(context.Background(), []string{"9ZZZ", "1ABC", "1ABC"})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 2, obs.cacheHits)
	stats := r.Stats()
	assert.Equal(t, int64(1), stats.PrimaryCalls)
	assert.Equal(t, int64(2), stats.CacheHits)
	assert.Equal(t, int64(2), stats.Resolved)
}

func TestResolver_BatchesOfConfiguredSize(t *testing.T) {
	primary := &fakePrimary{data: map[string][]string{}}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary))

	got := r.Resolve(context.Background(), ids("E", 250))
	assert.Len(t, got, 250)
	require.Equal(t, 3, primary.callCount())
	assert.Len(t, primary.calls[0], 100)
	assert.Len(t, primary.calls[1], 100)
	assert.Len(t, primary.calls[2], 50)
	assert.Equal(t, 100, r.BatchSize())
}

func TestResolver_PrimaryFailureFallsBackPerIdentifier(t *testing.T) {
	batch := ids("P", 100)
	primary := &fakePrimary{err: stderrors.New("connection reset by peer")}
	secondary := &mockEntry{}
	secondary.On("LookupEntry", mock.Anything, mock.AnythingOfType("string")).Return([]string{"Homo sapiens"}, nil)

	cache := NewCache()
	r := NewResolver(cache, nil, testConfig(), WithPrimary(primary), WithSecondary(secondary))
	got := r.Resolve(context.Background(), batch)

	assert.Equal(t, 1, primary.callCount())
	secondary.AssertNumberOfCalls(t, "LookupEntry", 100)
	assert.Len(t, got, 100)
	assert.Equal(t, 100, cache.Len())
	for _, id := range batch {
		ann, ok := cache.Get(id)
		require.True(t, ok, id)
		assert.True(t, ann.IsTarget)
		assert.Equal(t, OriginSecondary, ann.Origin)
	}
	stats := r.Stats()
	assert.Equal(t, int64(1), stats.PrimaryFailures)
	assert.Equal(t, int64(100), stats.SecondaryCalls)
}

func TestResolver_SecondaryFailuresDegradeIndividually(t *testing.T) {
	primary := &fakePrimary{err: stderrors.New("502 bad gateway")}
	secondary := &mockEntry{}
	secondary.On("LookupEntry", mock.Anything, "A").Return([]string{"Rattus norvegicus"}, nil)
	secondary.On("LookupEntry", mock.Anything, "B").Return([]string(nil), context.DeadlineExceeded)
	secondary.On("LookupEntry", mock.Anything, "C").Return([]string{ProteinStructureMarker}, nil)

	store := &memStore{data: map[string]Annotation{}}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary), WithSecondary(secondary), WithStore(store))
	got := r.Resolve(context.Background(), []string{"A", "B", "C"})

	assert.True(t, got["A"].IsTarget)
	assert.True(t, got["B"].IsUnknown())
	assert.False(t, got["B"].IsTarget)
	assert.False(t, got["C"].IsTarget)
	assert.Equal(t, []string{ProteinStructureMarker}, got["C"].Organisms)
	assert.Equal(t, int64(1), r.Stats().SecondaryFailures)
	assert.Equal(t, int64(1), r.Stats().Unavailable)

	assert.Contains(t, store.data, "A")
	assert.Contains(t, store.data, "C")
	assert.NotContains(t, store.data, "B", "failed lookups are not shared")
}

func TestResolver_PrimaryPanicIsContained(t *testing.T) {
	primary := &fakePrimary{panic: true}
	secondary := &mockEntry{}
	secondary.On("LookupEntry", mock.Anything, "X").Return([]string{"Mus musculus"}, nil)

	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary), WithSecondary(secondary))
	got := r.Resolve(context.Background(), []string{"X"})
	assert.True(t, got["X"].IsTarget)
}

func TestResolver_NoSecondaryMeansUnknown(t *testing.T) {
	primary := &fakePrimary{err: stderrors.New("timeout")}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary))
	got := r.Resolve(context.Background(), []string{"X", "Y"})
	assert.True(t, got["X"].IsUnknown())
	assert.True(t, got["Y"].IsUnknown())
	assert.Equal(t, int64(2), r.Stats().Unavailable)
}

func TestResolver_Offline(t *testing.T) {
	cache := NewCache()
	r := NewResolver(cache, nil, testConfig())
	got := r.Resolve(context.Background(), []string{"X", ""})
	assert.Equal(t, OriginOffline, got["X"].Origin)
	assert.True(t, got[""].IsUnknown())
	assert.Equal(t, 1, cache.Len(), "empty identifiers are never cached")
}

func TestResolver_SingleFlightAcrossGoroutines(t *testing.T) {
	gate := make(chan struct{})
	primary := &fakePrimary{gate: gate, data: map[string][]string{"HOT": {"Homo sapiens"}}}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary))

	const workers = 16
	results := make([]map[string]Annotation, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve(context.Background(), []string{"HOT"})
		}(i)
	}

	require.Eventually(t, func() bool { return primary.callCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, primary.callCount())
	for _, res := range results {
		assert.True(t, res["HOT"].IsTarget)
	}
}

func TestResolver_DetachedFromCallerCancellation(t *testing.T) {
	primary := &fakePrimary{data: map[string][]string{"X": {"Homo sapiens"}}}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := r.Resolve(ctx, []string{"X"})
	assert.True(t, got["X"].IsTarget)
	require.Len(t, primary.ctxOK, 1)
	assert.True(t, primary.ctxOK[0])
}

func TestResolver_StoreTier(t *testing.T) {
	store := &memStore{data: map[string]Annotation{
		"S1": {Organisms: []string{"Mus musculus"}, IsTarget: true, Origin: OriginPrimary},
	}}
	primary := &fakePrimary{data: map[string][]string{"N1": {"Homo sapiens"}}}
	obs := &countingObserver{}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary), WithStore(store), WithObserver(obs))

	got := r.Resolve(context.Background(), []string{"S1", "N1"})
	assert.Equal(t, OriginStore, got["S1"].Origin)
	assert.True(t, got["S1"].IsTarget)
	require.Equal(t, 1, primary.callCount())
	assert.Equal(t, []string{"N1"}, primary.calls[0])
	assert.Contains(t, store.data, "N1")
	assert.Equal(t, 1, obs.storeHits)
	assert.Equal(t, int64(1), r.Stats().StoreHits)
}

func TestResolver_StoreReadErrorIsIgnored(t *testing.T) {
	store := &memStore{data: map[string]Annotation{}, readErr: stderrors.New("redis down")}
	primary := &fakePrimary{data: map[string][]string{"N1": {"Homo sapiens"}}}
	r := NewResolver(NewCache(), nil, testConfig(), WithPrimary(primary), WithStore(store))

	got := r.Resolve(context.Background(), []string{"N1"})
	assert.True(t, got["N1"].IsTarget)
	assert.Equal(t, 1, store.puts)
}

func TestRatePolicy_EnforcesInterval(t *testing.T) {
	p := NewRatePolicy(20 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		p.Wait(context.Background())
	}
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestRatePolicy_NotCancellable(t *testing.T) {
	p := NewRatePolicy(30 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	p.Wait(ctx)
	p.Wait(ctx)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestRatePolicy_ZeroIntervalDoesNotBlock(t *testing.T) {
	p := NewRatePolicy(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		p.Wait(context.Background())
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestResolver_PacesPrimaryCalls(t *testing.T) {
	primary := &fakePrimary{data: map[string][]string{}}
	cfg := ResolverConfig{BatchSize: 1, PrimaryInterval: 15 * time.Millisecond}
	r := NewResolver(NewCache(), nil, cfg, WithPrimary(primary))

	start := time.Now()
	r.Resolve(context.Background(), []string{"A", "B", "C"})
	assert.Equal(t, 3, primary.callCount())
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}
