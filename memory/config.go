package memory

// Config holds Store configuration.
type Config struct {
	// Dir is the directory holding memories.json. Created if missing.
	Dir string

	// MaxMemories caps the record count; Prune keeps the top records by
	// effective importance when the cap is exceeded.
	// Default: 5000.
	MaxMemories int

	// Categories is the ordered category set used for classification.
	// Enumeration order breaks argmax ties.
	// Default: DefaultCategories.
	Categories []string

	// DefaultType is assigned when classification is skipped or fails.
	// Default: "other".
	DefaultType string

	// DefaultImportance is used when Add is not given an importance.
	// Default: 0.5.
	DefaultImportance float64

	// AssociateThreshold is the minimum keyword-overlap Jaccard score for
	// auto-association between a new record and an existing one.
	// Default: 0.3.
	AssociateThreshold float64
}

// DefaultConfig returns sensible defaults for a local store.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:                dir,
		MaxMemories:        5000,
		Categories:         DefaultCategories,
		DefaultType:        TypeOther,
		DefaultImportance:  0.5,
		AssociateThreshold: 0.3,
	}
}

func (c *Config) applyDefaults() {
	if c.MaxMemories <= 0 {
		c.MaxMemories = 5000
	}
	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories
	}
	if c.DefaultType == "" {
		c.DefaultType = TypeOther
	}
	if c.DefaultImportance == 0 {
		c.DefaultImportance = 0.5
	}
	if c.AssociateThreshold == 0 {
		c.AssociateThreshold = 0.3
	}
}
