package cli

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/hash"
)

// fileDigest is the output row for one hashed file.
type fileDigest struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint"`
	FullHash    string `json:"fullHash"`
}

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the full digest and sampled fingerprint of files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := fsops.NewRealFS()
		hasher := hash.NewSHA256Hasher()

		digests := make([]fileDigest, 0, len(args))
		for _, path := range args {
			info, err := fs.Stat(path)
			if err != nil {
				return err
			}
			full, err := hasher.HashFile(path)
			if err != nil {
				return err
			}
			fp, err := hasher.Fingerprint(path)
			if err != nil {
				return err
			}
			digests = append(digests, fileDigest{Path: path, Size: info.Size(), Fingerprint: fp, FullHash: full})
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(w, digests)
		}
		for _, d := range digests {
			PrintSection(w, d.Path)
			PrintLabelValue(w, "Size", humanize.Bytes(uint64(d.Size)))
			PrintLabelValue(w, "Full hash", d.FullHash)
			PrintLabelValue(w, "Fingerprint", d.Fingerprint)
		}
		return nil
	},
}
