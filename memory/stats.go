package memory

// Availability reports which auxiliary components were injected at
// construction. Degraded is set when any of them is running as a no-op.
type Availability struct {
	VectorIndex bool `json:"vector_index"`
	Graph       bool `json:"association_graph"`
	Classifier  bool `json:"classifier"`
	Extractor   bool `json:"extractor"`
	Degraded    bool `json:"degraded"`
}

// Stats summarizes the store contents and component health.
type Stats struct {
	TotalMemories     int            `json:"total_memories"`
	TypeCounts        map[string]int `json:"type_counts"`
	AverageImportance float64        `json:"average_importance"`
	AssociationCount  int            `json:"association_count"`
	Components        Availability   `json:"components"`
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalMemories:    len(s.records),
		TypeCounts:       make(map[string]int),
		AssociationCount: s.graph.EdgeCount(),
		Components: Availability{
			VectorIndex: s.hasIndex,
			Graph:       s.hasGraph,
			Classifier:  s.hasClassifier,
			Extractor:   s.hasExtractor,
		},
	}
	st.Components.Degraded = !st.Components.VectorIndex ||
		!st.Components.Graph || !st.Components.Classifier

	var sum float64
	for _, rec := range s.records {
		st.TypeCounts[rec.Type]++
		sum += rec.Importance
	}
	if len(s.records) > 0 {
		st.AverageImportance = sum / float64(len(s.records))
	}
	return st
}
