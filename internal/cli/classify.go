package cli

import (
	"github.com/spf13/cobra"

	"github.com/danieljhkim/launchcheck/internal/manifest"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <path>...",
	Short: "Show how install-relative paths are classified",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules := currentSettings().Rules()

		components := make([]manifest.ClassifiedFile, 0, len(args))
		for _, arg := range args {
			p := manifest.NormalizePath(arg)
			components = append(components, manifest.ClassifiedFile{
				RelativePath: p,
				Kind:         rules.Classify(p),
			})
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, components)
		}

		rows := make([][]string, 0, len(components))
		for _, c := range components {
			patch := "no"
			if c.Kind == manifest.KindPatch {
				patch = "yes"
			}
			rows = append(rows, []string{c.RelativePath, string(c.Kind), patch})
		}
		PrintTable(w, []string{"PATH", "KIND", "PATCH"}, rows)
		return nil
	},
}
