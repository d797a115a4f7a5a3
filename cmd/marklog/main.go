// Command marklog checks and exercises marklog logging configurations.
//
// # Usage
//
//	marklog validate <file.yaml>   check a configuration file
//	marklog schema                 print the configuration JSON Schema
//	marklog markers <file.yaml>    print the declared marker hierarchy
//	marklog demo                   emit sample records through a pipeline
//	marklog version                print build information
//
// The persistent log flags (--log-level, --log-format, --log-color) configure
// marklog's own diagnostics. The demo command builds its pipeline from
// --log-config when set, reloading it on change with --log-watch, and from
// the log flags otherwise.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
