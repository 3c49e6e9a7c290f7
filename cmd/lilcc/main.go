// Command lilcc is the compiler driver.
package main

import (
	"context"
	"io"
	"os"
)

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)
	return exitCode(rootCmd.ExecuteContext(ctx), stderr)
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
