// Command rv32sim runs RV32I programs on the instruction-set simulator.
//
// Usage:
//
//	rv32sim run [flags] <program>
//	rv32sim decode <word>...
//	rv32sim version
//
// The run command exits with the program's exit code (a0 at the halting
// ECALL), 2 when the machine faults and 3 when the step limit is reached.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

// Process exit codes for failures the guest program did not choose.
const (
	exitError     = 1
	exitFault     = 2
	exitStepLimit = 3
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run is the actual entry point, returning an exit code. args includes the
// program name so it can be handed to cli.App unchanged.
func run(args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(args)
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := ec.Error(); msg != "" {
			fmt.Fprintf(stderr, "Error: %s\n", msg)
		}
		return ec.ExitCode()
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitError
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:        "rv32sim",
		Usage:       "RV32I instruction-set simulator",
		Version:     version,
		HideVersion: true,
		Writer:      stdout,
		ErrWriter:   stderr,
		// Exit codes are turned into a return value by run, never os.Exit.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			runCommand(),
			decodeCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print version and exit",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "rv32sim %s (commit %s)\n", version, commit)
			return nil
		},
	}
}
