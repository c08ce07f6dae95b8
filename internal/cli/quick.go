package cli

import (
	"github.com/spf13/cobra"

	"github.com/danieljhkim/launchcheck/internal/inspect"
)

var quickOutput string

var quickCmd = &cobra.Command{
	Use:   "quick [installDir]",
	Short: "Check that a client is installed without touching the network",
	Long: `Inspect only the local filesystem: the install directory must exist and
contain a client executable. Nothing is hashed and no manifest is fetched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := currentSettings()
		format, err := outputFormat(quickOutput)
		if err != nil {
			return err
		}

		installDir, err := resolveInstallDir(args, s)
		if err != nil {
			return err
		}

		orch, err := newOrchestrator(s, "", nil)
		if err != nil {
			return err
		}

		report := orch.QuickCheck(installDir)
		if err := renderReport(cmd.OutOrStdout(), format, installDir, reportOutput{Summary: inspect.Summarize(report)}); err != nil {
			return err
		}
		return reportExit(report)
	},
}

func init() {
	quickCmd.Flags().StringVarP(&quickOutput, "output", "o", formatText, "Output format: text, json or yaml")
}
