package memory

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{"ID", "Content", "Type", "Importance", "Tags", "Created At"}

// Export serializes the whole record table to path. Supported formats:
// "json" (the full ID-to-record mapping, pretty-printed) and "csv"
// (tabular, tags joined with commas).
func (s *Store) Export(path, format string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch format {
	case FormatJSON:
		if err := writeJSONAtomic(path, s.records); err != nil {
			s.logger.Error("export failed", zap.String("path", path), zap.Error(err))
			return err
		}
	case FormatCSV:
		f, err := os.Create(path)
		if err != nil {
			s.logger.Error("export failed", zap.String("path", path), zap.Error(err))
			return err
		}
		defer f.Close()

		w := csv.NewWriter(f)
		if err := w.Write(csvHeader); err != nil {
			return err
		}
		for id, rec := range s.records {
			row := []string{
				id,
				rec.Content,
				rec.Type,
				strconv.FormatFloat(rec.Importance, 'g', -1, 64),
				strings.Join(rec.Tags, ","),
				rec.CreatedAt.Format(time.RFC3339),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	default:
		return validationErr("format", "must be json or csv")
	}

	s.logger.Info("memories exported",
		zap.String("path", path), zap.String("format", format),
		zap.Int("count", len(s.records)))
	return nil
}

// Import merges records from path into the store. Existing IDs are never
// overwritten (first writer wins); each newly merged record is pushed
// into the vector index and the association graph. CSV rows default
// missing fields: type to "other", importance to 0.5, timestamps to now,
// and a missing ID to a fresh one.
func (s *Store) Import(ctx context.Context, path, format string) error {
	var incoming map[string]*Record

	switch format {
	case FormatJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Error("import failed", zap.String("path", path), zap.Error(err))
			return err
		}
		if err := json.Unmarshal(data, &incoming); err != nil {
			s.logger.Error("import parse failed", zap.String("path", path), zap.Error(err))
			return err
		}
	case FormatCSV:
		var err error
		incoming, err = readCSVRecords(path)
		if err != nil {
			s.logger.Error("import failed", zap.String("path", path), zap.Error(err))
			return err
		}
	default:
		return validationErr("format", "must be json or csv")
	}

	var added []*Record
	s.mu.Lock()
	for id, rec := range incoming {
		if id == "" || rec == nil {
			continue
		}
		if _, exists := s.records[id]; exists {
			continue
		}
		rec.ID = id
		rec.Importance = clampImportance(rec.Importance)
		if rec.Type == "" {
			rec.Type = s.cfg.DefaultType
		}
		s.records[id] = rec
		added = append(added, rec)
	}
	if len(added) > 0 {
		s.saveLocked()
	}
	s.mu.Unlock()

	for _, rec := range added {
		if err := s.index.Add(ctx, rec.ID, rec.Content); err != nil {
			s.logger.Warn("vector index add failed during import",
				zap.String("id", rec.ID), zap.Error(err))
		}
		s.graph.AddNode(rec.ID, map[string]string{"type": rec.Type})
	}

	s.logger.Info("memories imported",
		zap.String("path", path), zap.Int("merged", len(added)),
		zap.Int("seen", len(incoming)))
	return nil
}

func readCSVRecords(path string) (map[string]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*Record)
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == csvHeader[0] {
			continue // header row
		}
		rec := recordFromCSVRow(row)
		out[rec.ID] = rec
	}
	return out, nil
}

func recordFromCSVRow(row []string) *Record {
	field := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	now := time.Now()
	rec := &Record{
		ID:           field(0),
		Content:      field(1),
		Type:         field(2),
		Importance:   0.5,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Type == "" {
		rec.Type = TypeOther
	}
	if v, err := strconv.ParseFloat(field(3), 64); err == nil {
		rec.Importance = v
	}
	if tags := field(4); tags != "" {
		rec.Tags = strings.Split(tags, ",")
	}
	if t, err := time.Parse(time.RFC3339, field(5)); err == nil {
		rec.CreatedAt = t
	}
	return rec
}
