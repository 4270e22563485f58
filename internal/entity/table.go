package entity

import (
	"cmp"
	"fmt"
)

// Table is one table found by the extraction tool. Data is row-major; the first row may be a header.
type Table struct {
	Index      int        `json:"index"`
	Page       int        `json:"page"`
	Accuracy   float64    `json:"accuracy"`
	Whitespace float64    `json:"whitespace"`
	Flavor     string     `json:"flavor"`
	Data       [][]string `json:"data"`
}

// TableKey identifies a table within its document.
type TableKey struct {
	Page  int
	Index int
}

func (t *Table) Key() TableKey { return TableKey{Page: t.Page, Index: t.Index} }

// RowCount is the number of data rows, header excluded.
func (t *Table) RowCount() int {
	if len(t.Data) <= 1 {
		return 0
	}
	return len(t.Data) - 1
}

// ColumnCount is the width of the widest row.
func (t *Table) ColumnCount() int {
	n := 0
	for _, row := range t.Data {
		n = max(n, len(row))
	}
	return n
}

func (t *Table) String() string {
	return fmt.Sprintf("Table %d (Page %d)", t.Index+1, t.Page)
}

// CompareTables orders tables by page, then index.
func CompareTables(a, b Table) int {
	if c := cmp.Compare(a.Page, b.Page); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// Clone copies the table including its grid.
func (t Table) Clone() Table {
	out := t
	if t.Data != nil {
		out.Data = make([][]string, len(t.Data))
		for i, row := range t.Data {
			out.Data[i] = append([]string(nil), row...)
		}
	}
	return out
}
