package table

// LoadMode selects the loading discipline of a destination table.
type LoadMode int

const (
	// Replace truncates the table once at the start of the run and appends
	// every unit's records after it.
	Replace LoadMode = iota
	// AppendKeyed deletes the rows matching a unit's key and appends just
	// that unit's records, so a rerun only rewrites the units it touches.
	AppendKeyed
)

// Table identifies a physical destination table and how it is loaded.
type Table struct {
	Name string
	// destination columns, in the exact order records are serialized
	Columns []string
	Mode    LoadMode
	// column holding the unit's natural key; required for AppendKeyed
	KeyColumn string
}
