package index

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// mapping is the sidecar document persisted next to the vector database.
// Tombstoned slots are carried so a restart can keep filtering them until
// the next Rebuild.
type mapping struct {
	IDToIndex  map[string]int `json:"id_to_index"`
	IndexToID  map[int]string `json:"index_to_id"`
	Tombstones []int          `json:"tombstones,omitempty"`
	NextSlot   int            `json:"next_slot"`
}

func dbPath(dir string) string {
	return filepath.Join(dir, "chromem")
}

func (x *Index) mappingPath() string {
	if x.cfg.Dir == "" {
		return ""
	}
	return filepath.Join(x.cfg.Dir, x.cfg.Collection+".mapping")
}

func (x *Index) loadMapping() {
	path := x.mappingPath()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		x.logger.Error("load index mapping failed", zap.Error(err))
		return
	}

	var m mapping
	if err := json.Unmarshal(data, &m); err != nil {
		x.logger.Error("parse index mapping failed",
			zap.String("path", path), zap.Error(err))
		return
	}

	x.mu.Lock()
	if m.IDToIndex != nil {
		x.idToSlot = m.IDToIndex
	}
	if m.IndexToID != nil {
		x.slotToID = m.IndexToID
	}
	for _, slot := range m.Tombstones {
		x.tombstones[slot] = true
	}
	x.nextSlot = m.NextSlot
	for slot := range x.slotToID {
		if slot >= x.nextSlot {
			x.nextSlot = slot + 1
		}
	}
	x.mu.Unlock()

	x.logger.Info("index mapping loaded",
		zap.Int("live", len(m.IDToIndex)), zap.Int("tombstones", len(m.Tombstones)))
}

// saveMappingLocked rewrites the sidecar. Callers hold x.mu. Failures are
// logged; the in-memory mapping stays authoritative.
func (x *Index) saveMappingLocked() {
	path := x.mappingPath()
	if path == "" {
		return
	}

	m := mapping{
		IDToIndex: x.idToSlot,
		IndexToID: x.slotToID,
		NextSlot:  x.nextSlot,
	}
	for slot := range x.tombstones {
		m.Tombstones = append(m.Tombstones, slot)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mapping-*")
	if err != nil {
		x.logger.Error("save index mapping failed", zap.Error(err))
		return
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		tmp.Close()
		x.logger.Error("save index mapping failed", zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		x.logger.Error("save index mapping failed", zap.Error(err))
		return
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		x.logger.Error("save index mapping failed", zap.Error(err))
	}
}
