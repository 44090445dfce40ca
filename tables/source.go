package tables

// Source yields table entries for one load operation.
//
// Implementations own the parsing or fetching of their backing store; a Registry only
// consumes the resulting in-memory entries. Sources that need I/O should fetch eagerly
// (see the sqlsource and pgsource packages) so that Load itself never blocks.
type Source interface {
	// Name identifies the source in errors and in Registry.Sources.
	Name() string
	// TableB returns the element entries.
	TableB() ([]TableBEntry, error)
	// TableD returns the sequence entries.
	TableD() ([]TableDEntry, error)
}

// StaticSource is a Source over entries already held in memory.
type StaticSource struct {
	Label string
	B     []TableBEntry
	D     []TableDEntry
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource creates a source over the given entries.
func NewStaticSource(label string, b []TableBEntry, d []TableDEntry) *StaticSource {
	return &StaticSource{Label: label, B: b, D: d}
}

// Name implements Source.
func (s *StaticSource) Name() string {
	if s.Label == "" {
		return "static"
	}

	return s.Label
}

// TableB implements Source.
func (s *StaticSource) TableB() ([]TableBEntry, error) {
	return s.B, nil
}

// TableD implements Source.
func (s *StaticSource) TableD() ([]TableDEntry, error) {
	return s.D, nil
}
