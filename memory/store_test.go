package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/recallkit/recall-go/memory"
	"github.com/recallkit/recall-go/memory/classify"
	"github.com/recallkit/recall-go/memory/embedder/mock"
	"github.com/recallkit/recall-go/memory/extract"
	"github.com/recallkit/recall-go/memory/graph"
	"github.com/recallkit/recall-go/memory/index"
)

// failingIndex simulates a vector backend whose embedding provider is
// broken at query time.
type failingIndex struct{}

func (failingIndex) Add(context.Context, string, string) error { return errors.New("embed failed") }
func (failingIndex) Remove(string) bool                        { return false }
func (failingIndex) Search(context.Context, string, int) ([]memory.VectorHit, error) {
	return nil, errors.New("embed failed")
}
func (failingIndex) Rebuild(context.Context) error { return nil }
func (failingIndex) IDs() []string                 { return nil }

// newFullStore wires a store with every component backed by in-memory
// implementations and the deterministic mock embedder.
func newFullStore(t *testing.T) (*memory.Store, *index.Index) {
	t.Helper()

	idx, err := index.New(index.Config{}, mock.New(), nil)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	rule := classify.NewRule(nil, nil)

	store, err := memory.New(memory.DefaultConfig(t.TempDir()),
		memory.WithVectorIndex(idx),
		memory.WithGraph(graph.New("", nil)),
		memory.WithClassifier(rule),
		memory.WithExtractor(extract.New(extract.Config{}, rule, nil)),
	)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store, idx
}

func TestStore_AddAndGet(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	id, err := store.Add(ctx, "Alice lives in Oslo", memory.WithTags("alice", "oslo"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatal("empty id returned")
	}

	rec, ok := store.Get(id)
	if !ok {
		t.Fatal("record not found")
	}
	if rec.Content != "Alice lives in Oslo" {
		t.Errorf("content: got %q", rec.Content)
	}
	if rec.AccessCount != 1 {
		t.Errorf("access count after one Get: got %d, want 1", rec.AccessCount)
	}
	if len(rec.Tags) != 2 {
		t.Errorf("tags: got %v", rec.Tags)
	}
}

func TestStore_AddEmptyContent(t *testing.T) {
	store, err := memory.New(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := store.Add(context.Background(), content); err == nil {
			t.Errorf("Add(%q) succeeded, want validation error", content)
		} else {
			var verr *memory.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Add(%q): got %T, want *ValidationError", content, err)
			}
		}
	}
}

func TestStore_ImportanceClamping(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	high, _ := store.Add(ctx, "very important", memory.WithImportance(1.7))
	if rec, _ := store.Get(high); rec.Importance != 1.0 {
		t.Errorf("importance 1.7: stored as %v, want 1.0", rec.Importance)
	}

	low, _ := store.Add(ctx, "not important", memory.WithImportance(-0.3))
	if rec, _ := store.Get(low); rec.Importance != 0.0 {
		t.Errorf("importance -0.3: stored as %v, want 0.0", rec.Importance)
	}
}

func TestStore_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newFullStore(t)

	id, err := store.Add(ctx, "temporary note")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if !store.Delete(id) {
		t.Error("first delete returned false")
	}
	if store.Delete(id) {
		t.Error("second delete returned true")
	}
	if _, ok := store.Get(id); ok {
		t.Error("record still present after delete")
	}
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	store, _ := newFullStore(t)

	id, err := store.Add(ctx, "Bob works at Acme", memory.WithImportance(0.4))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	newContent := "Bob works at Initech"
	newImportance := 0.9
	if !store.Update(ctx, id, memory.UpdateFields{
		Content:    &newContent,
		Importance: &newImportance,
	}) {
		t.Fatal("update returned false for existing record")
	}

	rec, _ := store.Get(id)
	if rec.Content != newContent {
		t.Errorf("content: got %q", rec.Content)
	}
	if rec.Importance != 0.9 {
		t.Errorf("importance: got %v", rec.Importance)
	}

	if store.Update(ctx, "no-such-id", memory.UpdateFields{Content: &newContent}) {
		t.Error("update of missing id returned true")
	}
}

func TestStore_PersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := memory.New(memory.DefaultConfig(dir))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	id, err := store.Add(ctx, "persisted fact", memory.WithType(memory.TypeFact))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	reopened, err := memory.New(memory.DefaultConfig(dir))
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("reopened store has %d records, want 1", reopened.Len())
	}
	rec, ok := reopened.Get(id)
	if !ok {
		t.Fatal("record lost across reopen")
	}
	if rec.Type != memory.TypeFact {
		t.Errorf("type: got %q", rec.Type)
	}
}

func TestStore_SearchKeywordFallback(t *testing.T) {
	ctx := context.Background()

	// No vector index at all: keyword scan must still deliver.
	store, err := memory.New(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	store.Add(ctx, "I love coffee in the morning")
	store.Add(ctx, "Tea is also fine")

	results := store.Search(ctx, "coffee")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Content != "I love coffee in the morning" {
		t.Errorf("wrong record: %q", results[0].Content)
	}
	if results[0].AccessCount < 1 {
		t.Error("returned record did not get access bookkeeping")
	}

	// Case-insensitive containment.
	if got := store.Search(ctx, "COFFEE"); len(got) != 1 {
		t.Errorf("uppercase query: got %d results, want 1", len(got))
	}
}

func TestStore_SearchSemanticFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(memory.DefaultConfig(t.TempDir()),
		memory.WithVectorIndex(failingIndex{}))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	store.Add(ctx, "the cat sat on the mat")

	results := store.Search(ctx, "cat")
	if len(results) != 1 {
		t.Fatalf("got %d results after index failure, want 1", len(results))
	}
}

func TestStore_SearchMinImportance(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	store.Add(ctx, "coffee note one", memory.WithImportance(0.5))
	store.Add(ctx, "coffee note two", memory.WithImportance(0.3))

	if got := store.Search(ctx, "coffee", memory.WithMinImportance(0.9)); len(got) != 0 {
		t.Errorf("min importance 0.9: got %d results, want 0", len(got))
	}
	if got := store.Search(ctx, "coffee", memory.WithMinImportance(0.4)); len(got) != 1 {
		t.Errorf("min importance 0.4: got %d results, want 1", len(got))
	}
}

func TestStore_SearchTypeFilter(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	store.Add(ctx, "coffee is a drink", memory.WithType(memory.TypeFact))
	store.Add(ctx, "I prefer coffee", memory.WithType(memory.TypePreference))

	results := store.Search(ctx, "coffee", memory.WithTypeFilter(memory.TypePreference))
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Type != memory.TypePreference {
		t.Errorf("type: got %q", results[0].Type)
	}
}

func TestStore_SemanticSearchScenario(t *testing.T) {
	ctx := context.Background()
	store, _ := newFullStore(t)

	coffeeID, err := store.Add(ctx, "I love coffee", memory.WithImportance(0.8))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	store.Add(ctx, "Tea is okay", memory.WithImportance(0.5))
	store.Add(ctx, "The meeting is tomorrow at 3pm", memory.WithImportance(0.5))

	if got := store.Stats().TotalMemories; got != 3 {
		t.Fatalf("total memories: got %d, want 3", got)
	}

	results := store.Search(ctx, "coffee", memory.WithLimit(2))
	if len(results) == 0 {
		t.Fatal("semantic search returned nothing")
	}
	found := false
	for _, rec := range results {
		if rec.ID == coffeeID {
			found = true
		}
	}
	if !found {
		t.Errorf("coffee record missing from results: %+v", results)
	}
}

func TestStore_AutoClassification(t *testing.T) {
	ctx := context.Background()
	store, _ := newFullStore(t)

	id, err := store.Add(ctx, "I love sushi more than anything")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	rec, _ := store.Get(id)
	if rec.Type != memory.TypePreference {
		t.Errorf("classified as %q, want %q", rec.Type, memory.TypePreference)
	}

	// Explicit type skips classification entirely.
	id2, _ := store.Add(ctx, "I love sushi", memory.WithType(memory.TypeEvent))
	if rec, _ := store.Get(id2); rec.Type != memory.TypeEvent {
		t.Errorf("explicit type overridden: got %q", rec.Type)
	}
}

func TestStore_ClassifierUnavailableUsesDefault(t *testing.T) {
	ctx := context.Background()
	store, err := memory.New(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	id, _ := store.Add(ctx, "something without a classifier")
	if rec, _ := store.Get(id); rec.Type != memory.TypeOther {
		t.Errorf("type: got %q, want %q", rec.Type, memory.TypeOther)
	}
}

func TestStore_PruneKeepsMostImportant(t *testing.T) {
	ctx := context.Background()
	cfg := memory.DefaultConfig(t.TempDir())
	cfg.MaxMemories = 2

	store, err := memory.New(cfg)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	store.Add(ctx, "keep me high", memory.WithImportance(0.9))
	store.Add(ctx, "keep me mid", memory.WithImportance(0.8))
	lowID, _ := store.Add(ctx, "drop me", memory.WithImportance(0.1))

	if store.Len() != 2 {
		t.Fatalf("after overflow: %d records, want 2", store.Len())
	}
	if _, ok := store.Get(lowID); ok {
		t.Error("lowest-importance record survived prune")
	}
}

func TestStore_SyncRemovesStaleIndexEntries(t *testing.T) {
	ctx := context.Background()
	store, idx := newFullStore(t)

	store.Add(ctx, "real record")

	// Inject an entry the record table knows nothing about.
	if err := idx.Add(ctx, "ghost-id", "ghost content"); err != nil {
		t.Fatalf("index add: %v", err)
	}

	store.Sync(ctx)

	for _, id := range idx.IDs() {
		if id == "ghost-id" {
			t.Error("stale index entry survived sync")
		}
	}
	if idx.Len() != store.Len() {
		t.Errorf("index has %d entries, store has %d", idx.Len(), store.Len())
	}
}

func TestStore_AssociationsAndDeleteCascade(t *testing.T) {
	ctx := context.Background()
	store, _ := newFullStore(t)

	a, _ := store.Add(ctx, "record a")
	b, _ := store.Add(ctx, "record b")
	c, _ := store.Add(ctx, "record c")

	if !store.AddAssociation(a, b, "related_to", 0.9) {
		t.Fatal("AddAssociation failed for existing endpoints")
	}
	if !store.AddAssociation(a, c, "related_to", 0.4) {
		t.Fatal("AddAssociation failed for existing endpoints")
	}
	if store.AddAssociation(a, "missing", "related_to", 0.5) {
		t.Error("AddAssociation succeeded with missing endpoint")
	}

	assoc := store.Associated(a, 10)
	if len(assoc) != 2 {
		t.Fatalf("got %d associations, want 2", len(assoc))
	}
	// Sorted by strength descending.
	if assoc[0].Record.ID != b || assoc[1].Record.ID != c {
		t.Errorf("association order: got %s, %s", assoc[0].Record.ID, assoc[1].Record.ID)
	}

	// Deleting b cascades into the graph.
	store.Delete(b)
	assoc = store.Associated(a, 10)
	if len(assoc) != 1 || assoc[0].Record.ID != c {
		t.Errorf("after cascade: got %+v", assoc)
	}
}

func TestStore_ExtractAndAdd(t *testing.T) {
	ctx := context.Background()
	store, _ := newFullStore(t)

	ids := store.ExtractAndAdd(ctx,
		"I love hiking in the mountains. The weather was 25 degrees.", nil)
	if len(ids) == 0 {
		t.Fatal("extraction produced no records")
	}
	for _, id := range ids {
		if _, ok := store.Get(id); !ok {
			t.Errorf("extracted id %s not in store", id)
		}
	}
}

func TestStore_StatsAvailability(t *testing.T) {
	bare, err := memory.New(memory.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if st := bare.Stats(); !st.Components.Degraded {
		t.Error("bare store not reported as degraded")
	}

	full, _ := newFullStore(t)
	st := full.Stats()
	if st.Components.Degraded {
		t.Errorf("fully wired store reported degraded: %+v", st.Components)
	}
	if !st.Components.VectorIndex || !st.Components.Graph || !st.Components.Classifier {
		t.Errorf("component flags: %+v", st.Components)
	}
}

func TestStore_StatsCounts(t *testing.T) {
	ctx := context.Background()
	store, _ := newFullStore(t)

	store.Add(ctx, "a fact", memory.WithType(memory.TypeFact), memory.WithImportance(0.4))
	store.Add(ctx, "another fact", memory.WithType(memory.TypeFact), memory.WithImportance(0.6))
	store.Add(ctx, "an event", memory.WithType(memory.TypeEvent), memory.WithImportance(0.8))

	st := store.Stats()
	if st.TotalMemories != 3 {
		t.Errorf("total: got %d", st.TotalMemories)
	}
	if st.TypeCounts[memory.TypeFact] != 2 || st.TypeCounts[memory.TypeEvent] != 1 {
		t.Errorf("type counts: %v", st.TypeCounts)
	}
	if diff := st.AverageImportance - 0.6; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("average importance: got %v, want 0.6", st.AverageImportance)
	}
}
