package cli

import (
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gantt/pkg/cache"
	"github.com/matzehuels/gantt/pkg/layout"
	"github.com/matzehuels/gantt/pkg/pipeline"
	"github.com/matzehuels/gantt/pkg/render/sink"
	"github.com/matzehuels/gantt/pkg/scale"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for gantt.

Besides subcommands, the scripts complete flag values such as
"gantt render --format svg,<TAB>", "--zoom", "--policy", "--theme" and
"gantt cache clear --kind".

Bash:
  $ source <(gantt completion bash)
  $ gantt completion bash > /etc/bash_completion.d/gantt

Zsh:
  $ gantt completion zsh > "${fpath[1]}/_gantt"

Fish:
  $ gantt completion fish > ~/.config/fish/completions/gantt.fish

PowerShell:
  PS> gantt completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

// Candidate values for flag completion.
func formatNames() []string { return sortedKeys(pipeline.ValidFormats) }
func orderNames() []string  { return sortedKeys(pipeline.Orders) }
func themeNames() []string  { return sortedKeys(sink.Themes) }

func zoomNames() []string {
	names := make([]string, len(scale.Granularities))
	for i, g := range scale.Granularities {
		names[i] = string(g)
	}
	return names
}

func policyNames() []string {
	return []string{string(layout.Stack), string(layout.Overlay)}
}

func cacheKindNames() []string {
	return []string{cache.KindScene, cache.KindArtifact}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// completeOneOf completes a flag that takes a single value from values.
func completeOneOf(values func() []string) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, v := range values() {
			if strings.HasPrefix(v, strings.ToLower(toComplete)) {
				out = append(out, v)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeList completes the last element of a comma-separated list,
// skipping values already present.
func completeList(values func() []string) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		head, last := "", toComplete
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			head, last = toComplete[:i+1], toComplete[i+1:]
		}
		taken := strings.Split(strings.ToLower(head), ",")
		var out []string
		for _, v := range values() {
			if slices.Contains(taken, v) || !strings.HasPrefix(v, strings.ToLower(last)) {
				continue
			}
			out = append(out, head+v)
		}
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
}

// registerValueCompletions attaches value completion to whichever of the
// known flags cmd defines.
func registerValueCompletions(cmd *cobra.Command) {
	funcs := map[string]cobra.CompletionFunc{
		"format": completeList(formatNames),
		"zoom":   completeOneOf(zoomNames),
		"policy": completeOneOf(policyNames),
		"order":  completeOneOf(orderNames),
		"theme":  completeOneOf(themeNames),
		"kind":   completeOneOf(cacheKindNames),
	}
	for name, fn := range funcs {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, fn)
	}
}
