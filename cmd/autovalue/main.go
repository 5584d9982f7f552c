// Command autovalue generates implementations of value types.
//
// Usage:
//
//	autovalue [flags] [packages]
//
// Packages are given as patterns, like those accepted by "go build". If none
// are given, the package in the current directory is processed. For every
// interface annotated with @autovalue.AutoValue, a file named
// <type>_autovalue.go is written next to the interface's source (or under
// --output-dir), along with a registry file for each package.
//
// Flags may also be set in a .autovalue.yaml file in the current directory
// (or the file named by --config) and with AUTOVALUE_* environment variables,
// such as AUTOVALUE_OUTPUT_DIR.
//
// The command is typically run with go generate:
//
//	//go:generate autovalue
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
