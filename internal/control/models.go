// Package control reads the control spreadsheet that tells the notification
// stage how each process is reported: which worker handles it, who receives
// it, and the subject line.
package control

import (
	"sort"

	pkgstrings "kvcheck/pkg/platform/strings"
)

// Entry is one row of the control spreadsheet.
type Entry struct {
	Process     string
	Description string
	WorkerType  string
	// WorkerData is the recipient configuration; nil when the cell is blank.
	WorkerData *string
}

// Table is the parsed control spreadsheet keyed by normalized process name.
// A table is replaced wholesale on every load and never mutated.
type Table struct {
	entries map[string]Entry
}

// NewTable builds a Table. Later entries for the same process win.
func NewTable(entries ...Entry) Table {
	t := Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		t.entries[pkgstrings.NormalizeKey(e.Process)] = e
	}
	return t
}

// Lookup finds the entry of a process, ignoring case.
func (t Table) Lookup(process string) (Entry, bool) {
	e, ok := t.entries[pkgstrings.NormalizeKey(process)]
	return e, ok
}

// Len is the number of processes in the table.
func (t Table) Len() int { return len(t.entries) }

// Processes lists the process names as written in the spreadsheet, sorted.
func (t Table) Processes() []string {
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.Process)
	}
	sort.Strings(out)
	return out
}
