// Command mkvmux multiplexes one or more Matroska/WebM input files into a
// single output Segment, combining tracks, chapters and tags per the
// flags below.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var log zerolog.Logger

func main() {
	os.Exit(run())
}

func run() int {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("mkvmux failed")
		if code, ok := exitCodeFor(err); ok {
			return code
		}
		return 2
	}
	return exitCode
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "mkvmux [flags] input...",
		Short: "multiplex Matroska/WebM inputs into one output file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Inputs = args
			if opts.JobFile != "" {
				return runBatch(opts.JobFile)
			}
			j, err := jobFromOptions(opts)
			if err != nil {
				return err
			}
			return runJob(j)
		},
	}

	registerFlags(cmd, opts)
	return cmd
}

// exitCode is set by runJob/runBatch as they finish: 0 clean, 1 completed
// with warnings, 2 aborted on error (§7's three-way split, surfaced to
// the shell the way mkvmerge itself does). runJob/runBatch only return a
// non-nil error for conditions severe enough to abort the whole run, so
// any error reaching run() maps straight to exit code 2.
var exitCode int

func exitCodeFor(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	return 2, true
}
