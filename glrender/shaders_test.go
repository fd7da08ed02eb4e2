package glrender

import (
	"strings"
	"testing"
)

func TestWithDefines(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		defines []string
		want    string
	}{
		{"no defines", "#version 410 core\nvoid main() {}\n", nil, "#version 410 core\nvoid main() {}\n"},
		{"after version", "#version 410 core\nvoid main() {}\n", []string{"A", "B"}, "#version 410 core\n#define A\n#define B\nvoid main() {}\n"},
		{"no version line", "void main() {}\n", []string{"A"}, "#define A\nvoid main() {}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withDefines(tt.src, tt.defines); got != tt.want {
				t.Errorf("withDefines() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultProgramFeatures(t *testing.T) {
	prg := DefaultProgram()
	for _, f := range prg.Features {
		if !strings.Contains(prg.Fragment, "#ifdef "+f.Define) {
			t.Errorf("fragment source does not branch on %s", f.Define)
		}
		if !strings.Contains(prg.Fragment, f.Uniform) {
			t.Errorf("fragment source does not declare %s", f.Uniform)
		}
	}
}
