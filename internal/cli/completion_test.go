package cli

import (
	"os"
	"slices"
	"testing"

	"github.com/spf13/cobra"
)

func TestFlagValueCompletion(t *testing.T) {
	root := New(os.Stderr, LogInfo).RootCommand()

	tests := []struct {
		name       string
		args       []string
		flag       string
		toComplete string
		want       []string
	}{
		{"format first", []string{"render"}, "format", "p", []string{"pdf", "png"}},
		{"format after comma", []string{"render"}, "format", "svg,", []string{"svg,deps", "svg,dot", "svg,json", "svg,pdf", "svg,png", "svg,txt"}},
		{"format skips taken", []string{"render"}, "format", "svg,png,p", []string{"svg,png,pdf"}},
		{"render zoom", []string{"render"}, "zoom", "", []string{"day", "week", "month"}},
		{"serve zoom prefix", []string{"serve"}, "zoom", "W", []string{"week"}},
		{"tui zoom", []string{"tui"}, "zoom", "m", []string{"month"}},
		{"policy", []string{"render"}, "policy", "o", []string{"overlay"}},
		{"order", []string{"render"}, "order", "", []string{"name", "start"}},
		{"theme", []string{"render"}, "theme", "d", []string{"dark"}},
		{"cache kind", []string{"cache", "clear"}, "kind", "", []string{"scene", "artifact"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, err := root.Find(tt.args)
			if err != nil {
				t.Fatalf("Find(%v): %v", tt.args, err)
			}
			fn, ok := cmd.GetFlagCompletionFunc(tt.flag)
			if !ok {
				t.Fatalf("%s --%s has no completion", cmd.Name(), tt.flag)
			}
			got, directive := fn(cmd, nil, tt.toComplete)
			if !slices.Equal(got, tt.want) {
				t.Errorf("completions = %v, want %v", got, tt.want)
			}
			if directive&cobra.ShellCompDirectiveNoFileComp == 0 {
				t.Error("value completion should not fall back to file names")
			}
		})
	}
}

func TestOutputFlagKeepsFileCompletion(t *testing.T) {
	root := New(os.Stderr, LogInfo).RootCommand()
	cmd, _, err := root.Find([]string{"render"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cmd.GetFlagCompletionFunc("output"); ok {
		t.Error("--output should complete file names")
	}
}
