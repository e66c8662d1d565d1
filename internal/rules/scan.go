package rules

import (
	"regexp"
	"strings"
)

// Kind distinguishes plain rules from checkpoints. Both name a unit of
// work in the engine's workflow language; checkpoints additionally force
// DAG re-evaluation, which is the engine's business, not ours.
type Kind string

const (
	KindRule       Kind = "rule"
	KindCheckpoint Kind = "checkpoint"
)

// Block is one contiguous chunk of workflow text. Named blocks start at a
// rule or checkpoint header; preamble text (imports, helper functions,
// config statements) carries an empty name.
type Block struct {
	Name Name
	Text string
}

// Name identifies a rule recovered from workflow text.
type Name struct {
	Value string
	Kind  Kind
	Line  int // 1-based line of the header within the scanned text
}

// headerRe matches rule and checkpoint headers. This is a best-effort
// textual scan, not a parse: a header-shaped line inside a multi-line
// string or a commented-out rule will be miscounted. The engine's own
// parser remains the source of truth; we only need names early enough
// to support replacement and forced re-runs.
var headerRe = regexp.MustCompile(`^(\s*)(rule|checkpoint)\s+([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// Scan recovers the rule names defined in a block of workflow text, in
// order of appearance.
func Scan(text string) []Name {
	var names []Name
	for i, line := range strings.Split(text, "\n") {
		m := headerRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// Indented headers live inside some other construct (a string,
		// an if-block). Skip them rather than guess.
		if m[1] != "" {
			continue
		}
		names = append(names, Name{
			Value: m[3],
			Kind:  Kind(m[2]),
			Line:  i + 1,
		})
	}
	return names
}

// Split cuts workflow text into blocks: everything before the first rule
// header becomes a single unnamed preamble block, and each header starts
// a new named block running to the next header (or end of text).
func Split(text string) []Block {
	lines := strings.Split(text, "\n")
	names := Scan(text)

	if len(names) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Block{{Text: text}}
	}

	var blocks []Block
	if pre := strings.Join(lines[:names[0].Line-1], "\n"); strings.TrimSpace(pre) != "" {
		blocks = append(blocks, Block{Text: pre})
	}
	for i, n := range names {
		end := len(lines)
		if i+1 < len(names) {
			end = names[i+1].Line - 1
		}
		blocks = append(blocks, Block{
			Name: n,
			Text: strings.Join(lines[n.Line-1:end], "\n"),
		})
	}
	return blocks
}

// Names flattens the named entries of a block list.
func Names(blocks []Block) []string {
	var out []string
	for _, b := range blocks {
		if b.Name.Value != "" {
			out = append(out, b.Name.Value)
		}
	}
	return out
}
