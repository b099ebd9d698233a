package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/jwhyun/mediagate/internal/progress"
)

// drawProgress renders a stream's ticks as a terminal bar until the stream
// terminates. Call it in its own goroutine and wait on the returned channel.
func drawProgress(stream *progress.Stream, description string, quiet bool) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		if quiet {
			for range stream.Ticks() {
			}
			return
		}

		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(os.Stderr, "\n")
			}),
			progressbar.OptionSetRenderBlankState(true),
		)
		for pct := range stream.Ticks() {
			_ = bar.Set(pct)
		}
		if stream.Err() != nil {
			_ = bar.Exit()
			_, _ = fmt.Fprint(os.Stderr, "\n")
		}
	}()

	return done
}
