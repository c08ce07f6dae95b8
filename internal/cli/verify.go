package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danieljhkim/launchcheck/internal/inspect"
	"github.com/danieljhkim/launchcheck/internal/manifest"
	"github.com/danieljhkim/launchcheck/internal/pause"
	"github.com/danieljhkim/launchcheck/internal/planner"
)

var (
	verifyManifestURL string
	verifyOutput      string
	verifyPrefilter   bool
	verifyQuiet       bool
	verifyLauncher    string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [installDir]",
	Short: "Verify an install against the published patch manifest",
	Long: `Fetch the published patch manifest and compare every entry against the
local install. Reports one of ReadyToLaunch, NotInstalled, MissingExecutable,
RequiresUpdate, RequiresRepair or NetworkError.

The exit code is 0 only when the client is ready to launch. Interrupting the
run cancels it between files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := currentSettings()
		format, err := outputFormat(verifyOutput)
		if err != nil {
			return err
		}

		manifestURL := verifyManifestURL
		if manifestURL == "" {
			manifestURL = s.ManifestURL
		}
		if manifestURL == "" {
			return errors.New("no manifest URL configured (use --manifest-url or set manifest_url)")
		}
		if cmd.Flags().Changed("prefilter") {
			s.FingerprintPrefilter = verifyPrefilter
		}

		installDir, err := resolveInstallDir(args, s)
		if err != nil {
			return err
		}

		gate := &pause.Gate{}
		stopWatch := watchPauseSignals(gate)
		defer stopWatch()

		orch, err := newOrchestrator(s, manifestURL, gate)
		if err != nil {
			return err
		}

		var onProgress inspect.ProgressFunc
		if format == formatText && !verifyQuiet {
			stderr := cmd.ErrOrStderr()
			onProgress = func(message string, percent int) {
				PrintProgress(stderr, message, percent)
			}
		}

		report := orch.VerifyClient(cmd.Context(), installDir, onProgress)

		var plan *planner.RepairPlan
		if update, ok := report.(inspect.RequiresUpdate); ok {
			plan = planner.BuildRepairPlan(installDir, update.Manifest, update.Sanitization)
		}
		current := verifyLauncher
		if current == "" {
			current = s.LauncherVersion
		}
		if current == "" {
			current = cmd.Root().Version
		}
		launcher := checkLauncherUpdate(verifiedManifest(report), current)

		out := reportOutput{Summary: inspect.Summarize(report), RepairPlan: plan, LauncherUpdate: launcher}
		if err := renderReport(cmd.OutOrStdout(), format, installDir, out); err != nil {
			return err
		}
		return reportExit(report)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyManifestURL, "manifest-url", "", "Patch manifest URL or file path (overrides manifest_url)")
	verifyCmd.Flags().StringVarP(&verifyOutput, "output", "o", formatText, "Output format: text, json or yaml")
	verifyCmd.Flags().BoolVar(&verifyPrefilter, "prefilter", false, "Reject files by sampled fingerprint before the full digest")
	verifyCmd.Flags().BoolVarP(&verifyQuiet, "quiet", "q", false, "Do not print progress")
	verifyCmd.Flags().StringVar(&verifyLauncher, "launcher-version", "", "Installed launcher version compared against the advertised update (default: this binary's version)")
}

// reportOutput is the machine-readable form of a report.
type reportOutput struct {
	inspect.Summary `yaml:",inline"`

	RepairPlan     *planner.RepairPlan `json:"repairPlan,omitempty" yaml:"repairPlan,omitempty"`
	LauncherUpdate *launcherStatus     `json:"launcherUpdate,omitempty" yaml:"launcherUpdate,omitempty"`
}

// launcherStatus is an advertised launcher update newer than the installed one.
type launcherStatus struct {
	Current     string `json:"current" yaml:"current"`
	Available   string `json:"available" yaml:"available"`
	DownloadURL string `json:"downloadUrl" yaml:"downloadUrl"`
	Mandatory   bool   `json:"mandatory" yaml:"mandatory"`
}

// verifiedManifest returns the manifest a report was produced from, if any.
func verifiedManifest(report inspect.Report) *manifest.PatchManifest {
	switch r := report.(type) {
	case inspect.ReadyToLaunch:
		return r.Manifest
	case inspect.RequiresUpdate:
		return r.Manifest
	}
	return nil
}

// checkLauncherUpdate reports the manifest's launcher update when it is newer
// than current. Versions that are not semver are skipped.
func checkLauncherUpdate(m *manifest.PatchManifest, current string) *launcherStatus {
	if m == nil || m.LauncherUpdate == nil {
		return nil
	}
	newer, err := m.LauncherUpdate.Newer(current)
	if err != nil {
		logger.Debug("skipping launcher update check", zap.Error(err))
		return nil
	}
	if !newer {
		return nil
	}
	return &launcherStatus{
		Current:     current,
		Available:   m.LauncherUpdate.Version,
		DownloadURL: m.LauncherUpdate.DownloadURL,
		Mandatory:   m.LauncherUpdate.Mandatory,
	}
}

// renderReport writes out in the requested format.
func renderReport(w io.Writer, format, installDir string, out reportOutput) error {
	switch format {
	case formatJSON:
		return outputJSON(w, out)
	case formatYAML:
		return outputYAML(w, out)
	}

	summary, plan := out.Summary, out.RepairPlan
	_, _ = statusColor(summary.Status).Fprintf(w, "%s\n", summary.Status)
	PrintLabelValue(w, "Install", installDir)
	if summary.ManifestVersion != 0 {
		PrintLabelValue(w, "Manifest version", fmt.Sprintf("%d", summary.ManifestVersion))
	}
	PrintLabelValue(w, "Message", summary.Message)

	if u := out.LauncherUpdate; u != nil {
		kind := "available"
		if u.Mandatory {
			kind = "required"
		}
		PrintWarning(w, fmt.Sprintf("Launcher update %s: %s (installed %s)", kind, u.Available, u.Current))
		if u.DownloadURL != "" {
			PrintLabelValue(w, "Launcher download", u.DownloadURL)
		}
	}

	if plan == nil || plan.Empty() {
		return nil
	}

	PrintSection(w, "Repair plan")
	rows := make([][]string, 0, len(plan.Operations))
	for _, op := range plan.Operations {
		size := ""
		if op.Type == planner.OpDownload {
			size = humanize.Bytes(uint64(op.Size))
		}
		rows = append(rows, []string{op.RelPath, op.Type, string(op.Reason), size})
	}
	PrintTable(w, []string{"PATH", "OPERATION", "REASON", "SIZE"}, rows)
	for _, c := range plan.Conflicts {
		PrintWarning(w, fmt.Sprintf("%s: %s", c.Path, c.Reason))
	}
	_, _ = fmt.Fprintln(w)
	PrintLabelValue(w, "Total", fmt.Sprintf("%s, %s to download",
		PrintCount(len(plan.Operations), "operation", "operations"), humanize.Bytes(uint64(plan.DownloadBytes))))
	return nil
}

// reportExit maps a report status to the command's exit outcome.
func reportExit(report inspect.Report) error {
	code := 0
	switch report.Status() {
	case inspect.StatusReadyToLaunch:
		return nil
	case inspect.StatusRequiresUpdate, inspect.StatusRequiresRepair:
		code = 2
	case inspect.StatusNetworkError:
		code = 3
	case inspect.StatusNotInstalled, inspect.StatusMissingExecutable:
		code = 4
	}
	return &ExitError{Code: code, Err: errReported}
}
