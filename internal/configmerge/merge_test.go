package configmerge

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name: "JSON object",
			text: `{"samples": ["a", "b"], "threads": 4}`,
			want: map[string]interface{}{
				"samples": []interface{}{"a", "b"},
				"threads": float64(4),
			},
		},
		{
			name: "YAML mapping",
			text: "samples:\n  - a\n  - b\nthreads: 4\n",
			want: map[string]interface{}{
				"samples": []interface{}{"a", "b"},
				"threads": 4,
			},
		},
		{
			name: "nested YAML",
			text: "params:\n  aligner:\n    threads: 8\n",
			want: map[string]interface{}{
				"params": map[string]interface{}{
					"aligner": map[string]interface{}{"threads": 8},
				},
			},
		},
		{name: "empty block", text: "   \n", wantErr: true},
		{name: "broken JSON", text: `{"a": }`, wantErr: true},
		{name: "YAML scalar is not a mapping", text: "just a string", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	dst := map[string]interface{}{
		"threads": 2,
		"params": map[string]interface{}{
			"aligner": map[string]interface{}{"threads": 4, "seed": 11},
		},
	}
	src := map[string]interface{}{
		"threads": 8,
		"params": map[string]interface{}{
			"aligner": map[string]interface{}{"threads": 16},
			"sorter":  map[string]interface{}{"mem": "4G"},
		},
	}

	got := Merge(dst, src)

	if got["threads"] != 8 {
		t.Errorf("scalar should be overwritten, got %v", got["threads"])
	}
	aligner := got["params"].(map[string]interface{})["aligner"].(map[string]interface{})
	if aligner["threads"] != 16 {
		t.Errorf("nested scalar should be overwritten, got %v", aligner["threads"])
	}
	if aligner["seed"] != 11 {
		t.Errorf("sibling key should survive merge, got %v", aligner["seed"])
	}
	if _, ok := got["params"].(map[string]interface{})["sorter"]; !ok {
		t.Error("new nested mapping should be added")
	}
}

func TestMergeIntoNil(t *testing.T) {
	got := Merge(nil, map[string]interface{}{"a": 1})
	if got["a"] != 1 {
		t.Fatalf("Merge(nil, src) = %v", got)
	}
}

func TestMergeListOverwrites(t *testing.T) {
	dst := map[string]interface{}{"samples": []interface{}{"a"}}
	src := map[string]interface{}{"samples": []interface{}{"b", "c"}}
	got := Merge(dst, src)
	if len(got["samples"].([]interface{})) != 2 {
		t.Errorf("lists overwrite, not append: %v", got["samples"])
	}
}

func TestWriteYAML(t *testing.T) {
	out, err := WriteYAML(map[string]interface{}{"threads": 4})
	if err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	if !strings.Contains(string(out), "threads: 4") {
		t.Errorf("WriteYAML() = %q", out)
	}
}
