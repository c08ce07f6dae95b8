//go:build !unix

package cli

import "github.com/danieljhkim/launchcheck/internal/pause"

// watchPauseSignals is a no-op where SIGUSR1 does not exist.
func watchPauseSignals(gate *pause.Gate) func() {
	return func() {}
}
