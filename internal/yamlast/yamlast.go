// Package yamlast keeps a YAML syntax tree of the document being edited,
// indexed by line, along with the folds the editor reports.
package yamlast

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"apiprobe/internal/editor"
)

var lineError = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

// ParseError is a YAML syntax error with a zero-based position.
type ParseError struct {
	Mark   editor.Mark
	Reason string
	err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Mark.Line+1, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.err }

func (e *ParseError) Position() editor.Mark { return e.Mark }

func (e *ParseError) Message() string { return e.Reason }

func newParseError(err error) *ParseError {
	msg := err.Error()
	pe := &ParseError{Reason: strings.TrimPrefix(msg, "yaml: "), err: err}
	if m := lineError.FindStringSubmatch(msg); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil && n > 0 {
			pe.Mark.Line = n - 1
		}
		pe.Reason = m[2]
	}
	return pe
}

type entry struct {
	line int
	path []string
}

type Manager struct {
	root    *yaml.Node
	entries []entry
	folded  map[int]bool
}

func NewManager() *Manager {
	return &Manager{folded: map[int]bool{}}
}

// Refresh reparses text. On a syntax error the previous tree is kept and a
// *ParseError is returned.
func (m *Manager) Refresh(text string) error {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return newParseError(err)
	}
	m.root = &root
	m.entries = m.entries[:0]
	m.index(&root, nil)
	sort.SliceStable(m.entries, func(i, j int) bool { return m.entries[i].line < m.entries[j].line })
	return nil
}

func (m *Manager) index(n *yaml.Node, path []string) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			m.index(c, path)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			p := append(append([]string(nil), path...), key.Value)
			m.entries = append(m.entries, entry{line: key.Line - 1, path: p})
			m.index(val, p)
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			m.index(c, append(append([]string(nil), path...), strconv.Itoa(i)))
		}
	}
}

// Root is the last successfully parsed document node, or nil.
func (m *Manager) Root() *yaml.Node { return m.root }

// PathAt returns the key path of the nearest key at or above row.
func (m *Manager) PathAt(row int) []string {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].line > row })
	if i == 0 {
		return nil
	}
	return append([]string(nil), m.entries[i-1].path...)
}

// LineOf returns the row of the key at path.
func (m *Manager) LineOf(path ...string) (int, bool) {
	for _, e := range m.entries {
		if slices.Equal(e.path, path) {
			return e.line, true
		}
	}
	return 0, false
}

func (m *Manager) OnFoldChanged(ev editor.FoldEvent) {
	switch ev.Action {
	case editor.FoldAdded:
		m.folded[ev.Range.Start.Row] = true
	case editor.FoldRemoved:
		delete(m.folded, ev.Range.Start.Row)
	}
}

func (m *Manager) Folded(row int) bool { return m.folded[row] }

func (m *Manager) FoldedRows() []int {
	rows := make([]int, 0, len(m.folded))
	for r := range m.folded {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	return rows
}

// IsParseError reports whether err came from Refresh.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
