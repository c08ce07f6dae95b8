package cli

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/generator"
)

var (
	generateWorkers        int
	generateStrict         bool
	generateClientManifest bool
	generateClientURL      string
	generateDryRun         bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <clientDir> [outputDir] [baseDownloadUrl]",
	Short: "Generate base and patch manifests from a client tree",
	Long: `Walk a reference client tree and write base_manifest.json (every file with
its size) and patch_manifest.json (digests for the locale patch archives).

outputDir defaults to the current directory. The client tree is never
modified. Unreadable files are skipped and reported unless --strict is set.`,
	Example: `  launchcheck generate ./client
  launchcheck generate ./client ./out https://cdn.example.com/client`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			_ = cmd.Usage()
			return errors.New("missing client directory")
		}
		if !fsops.NewRealFS().IsDir(args[0]) {
			_ = cmd.Usage()
			return fmt.Errorf("client directory %q does not exist", args[0])
		}

		s := currentSettings()
		req := &generator.GenerateRequest{
			Root:                  args[0],
			OutputDir:             ".",
			ClientDownloadURL:     generateClientURL,
			Workers:               s.Workers,
			Strict:                generateStrict,
			IncludeClientManifest: generateClientManifest,
			DryRun:                generateDryRun,
		}
		if len(args) > 1 {
			req.OutputDir = args[1]
		}
		if len(args) > 2 {
			req.BaseURL = args[2]
		}
		if cmd.Flags().Changed("workers") {
			req.Workers = generateWorkers
		}

		result, err := newGenerator(s).Generate(cmd.Context(), req)
		if err != nil {
			return err
		}
		if skipErr := result.Err(); skipErr != nil {
			logger.Warn("files skipped during generation", zap.Error(skipErr))
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, result)
		}

		PrintSuccess(w, fmt.Sprintf("Generated manifests for %s", req.Root))
		PrintLabelValue(w, "Files", fmt.Sprintf("%d (%s)", result.FileCount, humanize.Bytes(uint64(result.TotalBytes))))
		PrintLabelValue(w, "Patches", fmt.Sprintf("%d", result.PatchCount))
		PrintLabelValue(w, "Duration", result.Duration.String())
		if req.DryRun {
			PrintEmptyState(w, "dry run: nothing written")
		} else {
			PrintList(w, result.Written, 1)
		}
		for _, sk := range result.Skipped {
			PrintWarning(w, fmt.Sprintf("skipped %s: %s", sk.Path, sk.Reason))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVarP(&generateWorkers, "workers", "w", 0, "Concurrent hashing workers (default: number of CPUs)")
	generateCmd.Flags().BoolVar(&generateStrict, "strict", false, "Abort on the first unreadable file")
	generateCmd.Flags().BoolVar(&generateClientManifest, "client-manifest", false, "Also write client_manifest.json covering every file")
	generateCmd.Flags().StringVar(&generateClientURL, "client-url", "", "Full client download URL recorded in the client manifest")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Build manifests without writing them")
}
