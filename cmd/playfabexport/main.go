package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mcooley/PlayFabExport/internal/version"
	"github.com/mcooley/PlayFabExport/internal/wait"
)

// Exit codes
const (
	ExitSuccess        = 0
	ExitGeneralError   = 1
	ExitInvalidArgs    = 2
	ExitRemoteError    = 3
	ExitTransferError  = 4
	ExitIntegrityError = 5
	ExitOutputError    = 6
)

// Replaced in tests.
var (
	stdout io.Writer   = os.Stdout
	stderr io.Writer   = os.Stderr
	waiter wait.Waiter = wait.Sleep{}
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "download":
		return runDownload(cmdArgs)
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, version.String())
		return ExitSuccess
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: playfabexport <command> [options]

Commands:
  download  Export a player segment and merge its shards into one TSV file
  version   Print version information

Run 'playfabexport <command> -h' for command-specific help.`)
}
