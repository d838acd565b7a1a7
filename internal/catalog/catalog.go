// Package catalog holds the read-only schema snapshot used for completion.
package catalog

// Table is a table or view and its columns in declaration order.
type Table struct {
	Name    string
	Columns []string
}

// Catalog is an immutable snapshot of the tables of one connection.
// A connection change replaces the whole value; there are no partial updates.
type Catalog struct {
	tables []Table
}

// New builds a catalog from tables, copying them so later changes to the
// arguments are not observed.
func New(tables ...Table) Catalog {
	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = Table{Name: t.Name, Columns: append([]string(nil), t.Columns...)}
	}
	return Catalog{tables: out}
}

// Tables returns the tables in catalog order.
func (c Catalog) Tables() []Table {
	return append([]Table(nil), c.tables...)
}

// Table looks a table up by exact name.
func (c Catalog) Table(name string) (Table, bool) {
	for _, t := range c.tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Len returns the number of tables.
func (c Catalog) Len() int { return len(c.tables) }

// Empty reports whether the catalog has no tables.
func (c Catalog) Empty() bool { return len(c.tables) == 0 }
