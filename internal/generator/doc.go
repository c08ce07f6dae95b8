// Package generator produces manifests from a canonical install tree.
//
// A single walk records every shipped file for the base manifest without
// hashing anything. Patch archives, and optionally every file for the client
// manifest, are then digested on a bounded worker pool. The source tree is
// never modified.
//
// Failure policy: a file that cannot be read is logged and skipped so one bad
// file does not abort a run over a large tree. Skipped files are reported in
// GenerateResult and the run can be made to fail fast with Strict.
package generator
