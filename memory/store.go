package memory

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const storeFile = "memories.json"

// Store owns the canonical record table and coordinates the derived views
// (vector index, association graph, classification). The record table is
// authoritative: every mutation succeeds or fails on the table alone, and
// auxiliary index failures are downgraded to logged best-effort no-ops.
//
// All mutations hold a single write lock across the read-modify-persist
// sequence; the persisted file is rewritten whole on every mutation, so
// the lock is what keeps concurrent writers from losing updates. Model
// calls (classification, embedding) run outside the lock.
type Store struct {
	cfg    Config
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	records map[string]*Record

	index      VectorIndex
	graph      AssociationGraph
	classifier Classifier
	extractor  Extractor

	hasIndex      bool
	hasGraph      bool
	hasClassifier bool
	hasExtractor  bool
}

// Option configures the Store.
type Option func(*Store)

// WithVectorIndex injects the semantic search index.
func WithVectorIndex(v VectorIndex) Option {
	return func(s *Store) {
		s.index = v
		s.hasIndex = true
	}
}

// WithGraph injects the association graph.
func WithGraph(g AssociationGraph) Option {
	return func(s *Store) {
		s.graph = g
		s.hasGraph = true
	}
}

// WithClassifier injects the auto-classification backend.
func WithClassifier(c Classifier) Option {
	return func(s *Store) {
		s.classifier = c
		s.hasClassifier = true
	}
}

// WithExtractor injects the candidate extractor used by ExtractAndAdd.
func WithExtractor(x Extractor) Option {
	return func(s *Store) {
		s.extractor = x
		s.hasExtractor = true
	}
}

// WithLogger sets the logging sink. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a Store rooted at cfg.Dir and loads any persisted records.
// Components that are not injected are replaced by no-op implementations,
// leaving the store in a reduced-functionality mode (keyword-only search,
// no classification) rather than failing to start.
func New(cfg Config, opts ...Option) (*Store, error) {
	cfg.applyDefaults()

	s := &Store{
		cfg:        cfg,
		path:       filepath.Join(cfg.Dir, storeFile),
		logger:     zap.NewNop(),
		records:    make(map[string]*Record),
		index:      noopIndex{},
		graph:      noopGraph{},
		classifier: noopClassifier{},
		extractor:  noopExtractor{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	s.load()
	return s, nil
}

// AddOption configures a single Add call.
type AddOption func(*addParams)

type addParams struct {
	importance   float64
	recordType   string
	tags         []string
	metadata     map[string]string
	autoClassify bool
}

// WithImportance sets the initial importance, clamped to [0, 1].
func WithImportance(v float64) AddOption {
	return func(p *addParams) { p.importance = v }
}

// WithType sets the record type explicitly, skipping auto-classification.
func WithType(t string) AddOption {
	return func(p *addParams) { p.recordType = t }
}

// WithTags sets the keyword tags.
func WithTags(tags ...string) AddOption {
	return func(p *addParams) { p.tags = tags }
}

// WithMetadata attaches extension fields.
func WithMetadata(md map[string]string) AddOption {
	return func(p *addParams) { p.metadata = md }
}

// WithoutClassify disables auto-classification for this record.
func WithoutClassify() AddOption {
	return func(p *addParams) { p.autoClassify = false }
}

// Add stores a new record and returns its fresh ID. The record is pushed
// best-effort into the vector index and the association graph; failures
// there are logged and never fail the add. The canonical file is rewritten
// before Add returns, so a crash after return cannot lose the record.
func (s *Store) Add(ctx context.Context, content string, opts ...AddOption) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", validationErr("content", "must not be empty")
	}

	p := addParams{
		importance:   s.cfg.DefaultImportance,
		autoClassify: true,
	}
	for _, opt := range opts {
		opt(&p)
	}

	// Classification may call a model; keep it outside the mutation lock.
	recType := p.recordType
	if recType == "" && p.autoClassify {
		recType = s.classifyContent(ctx, content)
	}
	if recType == "" {
		recType = s.cfg.DefaultType
	}

	now := time.Now()
	rec := &Record{
		ID:           uuid.New().String(),
		Content:      content,
		Importance:   clampImportance(p.importance),
		Type:         recType,
		Tags:         p.tags,
		CreatedAt:    now,
		LastAccessed: now,
		Metadata:     p.metadata,
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	overflow := len(s.records) > s.cfg.MaxMemories
	s.saveLocked()
	s.mu.Unlock()

	if err := s.index.Add(ctx, rec.ID, content); err != nil {
		s.logger.Warn("vector index add failed",
			zap.String("id", rec.ID), zap.Error(err))
	}
	s.graph.AddNode(rec.ID, map[string]string{"type": recType})

	if overflow {
		s.Prune(ctx)
	}

	s.logger.Debug("memory added",
		zap.String("id", rec.ID), zap.String("type", recType))
	return rec.ID, nil
}

// UpdateFields holds the mergeable fields for Update. Nil pointers and
// nil slices/maps leave the existing value untouched; Metadata entries
// are merged key by key.
type UpdateFields struct {
	Content    *string
	Importance *float64
	Type       *string
	Tags       []string
	Metadata   map[string]string
}

// Update merges fields into an existing record and refreshes LastAccessed.
// Returns false if id does not exist. A content change re-embeds the
// record: the old vector slot is tombstoned and the new content indexed
// under the same ID. Type changes never trigger reclassification.
func (s *Store) Update(ctx context.Context, id string, fields UpdateFields) bool {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	contentChanged := false
	if fields.Content != nil && *fields.Content != "" && *fields.Content != rec.Content {
		rec.Content = *fields.Content
		contentChanged = true
	}
	if fields.Importance != nil {
		rec.Importance = clampImportance(*fields.Importance)
	}
	if fields.Type != nil && *fields.Type != "" {
		rec.Type = *fields.Type
	}
	if fields.Tags != nil {
		rec.Tags = append([]string(nil), fields.Tags...)
	}
	if len(fields.Metadata) > 0 {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]string, len(fields.Metadata))
		}
		for k, v := range fields.Metadata {
			rec.Metadata[k] = v
		}
	}
	rec.LastAccessed = time.Now()
	content := rec.Content
	s.saveLocked()
	s.mu.Unlock()

	if contentChanged {
		s.index.Remove(id)
		if err := s.index.Add(ctx, id, content); err != nil {
			s.logger.Warn("re-embed after content update failed",
				zap.String("id", id), zap.Error(err))
		}
	}
	return true
}

// Delete removes a record and cascades: the graph node with all incident
// edges is removed and the vector entry tombstoned. Returns false if id
// does not exist; calling it twice returns true then false.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.records, id)
	s.saveLocked()
	s.mu.Unlock()

	s.graph.RemoveNode(id)
	s.index.Remove(id)

	s.logger.Debug("memory deleted", zap.String("id", id))
	return true
}

// Get returns a copy of the record and bumps its access bookkeeping.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	rec.AccessCount++
	rec.LastAccessed = time.Now()
	return rec.clone(), true
}

// Len returns the live record count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// classifyContent runs the classifier and picks the argmax category.
// Returns "" when classification is unavailable or matched nothing.
func (s *Store) classifyContent(ctx context.Context, content string) string {
	scores, err := s.classifier.Classify(ctx, content)
	if err != nil {
		s.logger.Warn("auto-classification failed", zap.Error(err))
		return ""
	}
	return argmax(s.cfg.Categories, scores)
}

// argmax picks the highest-scoring category; ties go to the category that
// appears first in enumeration order. Scores for categories outside the
// enumerated set are ignored.
func argmax(categories []string, scores map[string]float64) string {
	best := ""
	bestScore := math.Inf(-1)
	for _, cat := range categories {
		sc, ok := scores[cat]
		if !ok {
			continue
		}
		if sc > bestScore {
			best = cat
			bestScore = sc
		}
	}
	return best
}

// load reads the persisted record table. A missing file is created empty;
// a corrupt file is logged and the store starts empty, since the
// in-memory table is authoritative for the rest of the process lifetime.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.saveLocked()
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.logger.Error("load memories failed", zap.Error(err))
		return
	}

	var records map[string]*Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Error("parse memories file failed",
			zap.String("path", s.path), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.records = records
	if s.records == nil {
		s.records = make(map[string]*Record)
	}
	s.mu.Unlock()

	s.logger.Info("memories loaded",
		zap.Int("count", len(records)), zap.String("path", s.path))
}

// saveLocked rewrites the whole record file. Callers hold the write lock.
// Persistence failures are logged; the in-memory table stays authoritative.
func (s *Store) saveLocked() {
	if err := writeJSONAtomic(s.path, s.records); err != nil {
		s.logger.Error("save memories failed",
			zap.String("path", s.path), zap.Error(err))
	}
}

// writeJSONAtomic writes v as pretty JSON via a temp file and atomic
// rename, so readers never observe a partial file.
func writeJSONAtomic(path string, v interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".memories-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
