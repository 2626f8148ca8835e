// Package memory provides a local, file-backed long-term memory store for
// conversational agents.
//
// Short text memories extracted from conversation are kept in a canonical
// record table (memories.json, full-file write-through on every mutation)
// and mirrored into derived views: a vector index for semantic search, an
// association graph for relationship traversal, and a classifier for
// category assignment.
//
// Architecture:
//   - Store: canonical record table plus orchestration and retention
//   - VectorIndex: nearest-neighbor retrieval (index package, chromem-go)
//   - AssociationGraph: weighted typed links (graph package)
//   - Classifier: category scoring (classify package, rule-based or Claude)
//   - Extractor: candidate mining from free text (extract package)
//   - Embedder: text-to-vector (embedder/mock, embedder/onnx, embedder/cache)
//
// Every auxiliary component is optional. A store constructed with none of
// them still works in a degraded mode: keyword-only search, no
// classification, no associations. Auxiliary failures never propagate out
// of Add, Search, or Delete; the record table alone is authoritative.
package memory
