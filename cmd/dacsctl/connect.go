package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ccLee627/dacs7"
)

// connectFlags holds the flags shared by every subcommand that opens a PLC
// connection.
type connectFlags struct {
	address string
	rack    int
	slot    int
	jobs    uint16
	debug   bool
	trace   bool
}

func (f *connectFlags) register(cmd cobraFlagSet) {
	cmd.StringVar(&f.address, "address", "", "PLC address, host:port (required)")
	cmd.IntVar(&f.rack, "rack", 0, "PLC rack number")
	cmd.IntVar(&f.slot, "slot", 2, "PLC slot number")
	cmd.Uint16Var(&f.jobs, "jobs", 8, "maximum parallel PDU jobs")
	cmd.BoolVar(&f.debug, "debug", false, "enable debug logging")
	cmd.BoolVar(&f.trace, "trace", false, "enable trace-level (verbose debug) logging")
}

// cobraFlagSet is the subset of *pflag.FlagSet used by register, narrowed so
// this file need not import pflag directly.
type cobraFlagSet interface {
	StringVar(p *string, name string, value string, usage string)
	IntVar(p *int, name string, value int, usage string)
	Uint16Var(p *uint16, name string, value uint16, usage string)
	BoolVar(p *bool, name string, value bool, usage string)
}

func (f *connectFlags) connect() (*dacs7.Client, error) {
	if f.address == "" {
		return nil, fmt.Errorf("--address is required")
	}

	level := slog.LevelWarn
	if f.debug {
		level = slog.LevelDebug
	}
	if f.trace {
		level = slog.LevelDebug - 4
	}
	logger := dacs7.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return dacs7.New(
		dacs7.WithAddress(f.address),
		dacs7.WithRack(f.rack),
		dacs7.WithSlot(f.slot),
		dacs7.WithMaxParallelJobs(f.jobs),
		dacs7.WithLogger(logger),
	)
}
