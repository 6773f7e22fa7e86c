package recommendations

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// memoryGateway is an in-memory Gateway. Atomically holds the lock for the
// whole callback and restores a snapshot when the callback fails.
type memoryGateway struct {
	mu         sync.Mutex
	state      *memoryState
	failDelete error
}

type memoryState struct {
	nextID    int64
	records   map[int64]Recommendation
	creates   int
	deletions int
}

func newMemoryGateway() *memoryGateway {
	return &memoryGateway{state: &memoryState{records: make(map[int64]Recommendation)}}
}

func (state *memoryState) clone() *memoryState {
	copied := &memoryState{
		nextID:    state.nextID,
		records:   make(map[int64]Recommendation, len(state.records)),
		creates:   state.creates,
		deletions: state.deletions,
	}
	for id, record := range state.records {
		copied.records[id] = record
	}
	return copied
}

func (gateway *memoryGateway) view() *memoryTx {
	return &memoryTx{state: gateway.state, failDelete: gateway.failDelete}
}

func (gateway *memoryGateway) CreateUnique(ctx context.Context, name, link string) (Recommendation, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().CreateUnique(ctx, name, link)
}

func (gateway *memoryGateway) FindByName(ctx context.Context, name string) (*Recommendation, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().FindByName(ctx, name)
}

func (gateway *memoryGateway) FindByID(ctx context.Context, id int64) (*Recommendation, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().FindByID(ctx, id)
}

func (gateway *memoryGateway) AdjustScore(ctx context.Context, id int64, adjustment ScoreAdjustment) (*Recommendation, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().AdjustScore(ctx, id, adjustment)
}

func (gateway *memoryGateway) DeleteByID(ctx context.Context, id int64) error {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().DeleteByID(ctx, id)
}

func (gateway *memoryGateway) ListAll(ctx context.Context, limit int) ([]Recommendation, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().ListAll(ctx, limit)
}

func (gateway *memoryGateway) ListByScore(ctx context.Context, threshold int64, predicate ScorePredicate) ([]Recommendation, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().ListByScore(ctx, threshold, predicate)
}

func (gateway *memoryGateway) ListTopByScore(ctx context.Context, amount int) ([]Recommendation, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().ListTopByScore(ctx, amount)
}

func (gateway *memoryGateway) Truncate(ctx context.Context) error {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.view().Truncate(ctx)
}

func (gateway *memoryGateway) Atomically(ctx context.Context, fn func(Gateway) error) error {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	snapshot := gateway.state.clone()
	if err := fn(gateway.view()); err != nil {
		gateway.state = snapshot
		return err
	}
	return nil
}

// seed stores a record with the given score and returns its identifier.
func (gateway *memoryGateway) seed(t *testing.T, name string, score int64) int64 {
	t.Helper()
	record, err := gateway.CreateUnique(context.Background(), name, "https://www.youtube.com/watch?v="+name)
	if err != nil {
		t.Fatalf("failed to seed %s: %v", name, err)
	}
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	record.Score = score
	gateway.state.records[record.ID] = record
	return record.ID
}

func (gateway *memoryGateway) snapshot() *memoryState {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	return gateway.state.clone()
}

type memoryTx struct {
	state      *memoryState
	failDelete error
}

func (tx *memoryTx) CreateUnique(_ context.Context, name, link string) (Recommendation, error) {
	for _, record := range tx.state.records {
		if record.Name == name {
			return Recommendation{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
	}
	tx.state.nextID++
	record := Recommendation{ID: tx.state.nextID, Name: name, Link: link}
	tx.state.records[record.ID] = record
	tx.state.creates++
	return record, nil
}

func (tx *memoryTx) FindByName(_ context.Context, name string) (*Recommendation, error) {
	for _, record := range tx.state.records {
		if record.Name == name {
			found := record
			return &found, nil
		}
	}
	return nil, nil
}

func (tx *memoryTx) FindByID(_ context.Context, id int64) (*Recommendation, error) {
	record, ok := tx.state.records[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (tx *memoryTx) AdjustScore(_ context.Context, id int64, adjustment ScoreAdjustment) (*Recommendation, error) {
	delta, err := adjustment.Delta()
	if err != nil {
		return nil, err
	}
	record, ok := tx.state.records[id]
	if !ok {
		return nil, nil
	}
	record.Score += delta
	tx.state.records[id] = record
	return &record, nil
}

func (tx *memoryTx) DeleteByID(_ context.Context, id int64) error {
	if tx.failDelete != nil {
		return tx.failDelete
	}
	if _, ok := tx.state.records[id]; ok {
		delete(tx.state.records, id)
		tx.state.deletions++
	}
	return nil
}

func (tx *memoryTx) ListAll(_ context.Context, limit int) ([]Recommendation, error) {
	records := tx.sorted()
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (tx *memoryTx) ListByScore(_ context.Context, threshold int64, predicate ScorePredicate) ([]Recommendation, error) {
	matches := make([]Recommendation, 0)
	for _, record := range tx.sorted() {
		switch predicate {
		case ScoreAbove:
			if record.Score > threshold {
				matches = append(matches, record)
			}
		case ScoreAtMost:
			if record.Score <= threshold {
				matches = append(matches, record)
			}
		default:
			return nil, fmt.Errorf("unknown predicate %d", predicate)
		}
	}
	return matches, nil
}

func (tx *memoryTx) ListTopByScore(_ context.Context, amount int) ([]Recommendation, error) {
	records := tx.sorted()
	sort.SliceStable(records, func(i, j int) bool { return records[i].Score > records[j].Score })
	if len(records) > amount {
		records = records[:amount]
	}
	return records, nil
}

func (tx *memoryTx) Truncate(context.Context) error {
	tx.state.records = make(map[int64]Recommendation)
	return nil
}

func (tx *memoryTx) Atomically(_ context.Context, fn func(Gateway) error) error {
	return fn(tx)
}

// sorted returns records in insertion order.
func (tx *memoryTx) sorted() []Recommendation {
	records := make([]Recommendation, 0, len(tx.state.records))
	for _, record := range tx.state.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// scriptedRandom replays fixed draws; the last value repeats once a script is exhausted.
type scriptedRandom struct {
	mu      sync.Mutex
	floats  []float64
	indexes []int
}

func (r *scriptedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	value := r.floats[0]
	if len(r.floats) > 1 {
		r.floats = r.floats[1:]
	}
	return value
}

func (r *scriptedRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.indexes) == 0 {
		return 0
	}
	value := r.indexes[0]
	if len(r.indexes) > 1 {
		r.indexes = r.indexes[1:]
	}
	return value % n
}

// seededRandom is a deterministic RandomSource for statistical tests.
type seededRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSeededRandom(seed uint64) *seededRandom {
	return &seededRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *seededRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *seededRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

func newTestService(t *testing.T, gateway Gateway, random RandomSource) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Gateway: gateway,
		Random:  random,
		Logger:  zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct recommendations service: %v", err)
	}
	return service
}
