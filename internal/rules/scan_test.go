package rules

import (
	"reflect"
	"testing"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single rule",
			text: "rule all:\n    input: \"out.txt\"\n",
			want: []string{"all"},
		},
		{
			name: "multiple rules and a checkpoint",
			text: "rule align:\n    shell: \"aln\"\n\ncheckpoint split:\n    shell: \"split\"\n\nrule merge:\n    shell: \"merge\"\n",
			want: []string{"align", "split", "merge"},
		},
		{
			name: "preamble only",
			text: "import os\n\nconfigfile: \"config.yaml\"\n",
			want: nil,
		},
		{
			name: "indented header is skipped",
			text: "if True:\n    rule hidden:\n        shell: \"x\"\n",
			want: nil,
		},
		{
			name: "header needs colon",
			text: "rule broken\nrule ok:\n",
			want: []string{"ok"},
		},
		{
			name: "underscore and digits in names",
			text: "rule _sort_2:\n    shell: \"sort\"\n",
			want: []string{"_sort_2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, n := range Scan(tt.text) {
				got = append(got, n.Value)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Scan() names = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanKindsAndLines(t *testing.T) {
	text := "import os\n\nrule a:\n    shell: \"a\"\ncheckpoint b:\n    shell: \"b\"\n"
	names := Scan(text)
	if len(names) != 2 {
		t.Fatalf("Scan() returned %d names, want 2", len(names))
	}
	if names[0].Kind != KindRule || names[0].Line != 3 {
		t.Errorf("first name = %+v, want rule at line 3", names[0])
	}
	if names[1].Kind != KindCheckpoint || names[1].Line != 5 {
		t.Errorf("second name = %+v, want checkpoint at line 5", names[1])
	}
}

func TestSplit(t *testing.T) {
	text := "import os\n\nrule a:\n    shell: \"a\"\n\nrule b:\n    shell: \"b\"\n"
	blocks := Split(text)

	if len(blocks) != 3 {
		t.Fatalf("Split() returned %d blocks, want 3", len(blocks))
	}
	if blocks[0].Name.Value != "" {
		t.Errorf("first block should be unnamed preamble, got %q", blocks[0].Name.Value)
	}
	if blocks[1].Name.Value != "a" || blocks[2].Name.Value != "b" {
		t.Errorf("named blocks = %q, %q, want a, b", blocks[1].Name.Value, blocks[2].Name.Value)
	}
	// Each named block keeps its own body.
	if want := "rule a:\n    shell: \"a\"\n"; blocks[1].Text != want {
		t.Errorf("block a text = %q, want %q", blocks[1].Text, want)
	}
}

func TestSplitNoRules(t *testing.T) {
	blocks := Split("x = 1\n")
	if len(blocks) != 1 || blocks[0].Name.Value != "" {
		t.Fatalf("Split() = %+v, want single unnamed block", blocks)
	}
	if Split("   \n") != nil {
		t.Error("Split() of whitespace should be nil")
	}
}
