//go:build unix

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/danieljhkim/launchcheck/internal/pause"
)

// watchPauseSignals toggles gate on SIGUSR1 until the returned stop function
// is called.
func watchPauseSignals(gate *pause.Gate) func() {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, syscall.SIGUSR1)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-sigs:
				if gate.Paused() {
					gate.Resume()
					logger.Info("verification resumed")
				} else {
					gate.Pause()
					logger.Info("verification paused", zap.String("resume", "send SIGUSR1 again"))
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
