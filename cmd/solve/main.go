package main

import (
	"fmt"
	"io"
	"os"

	"numcap/pkg/solver"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run solves the single file named in args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 || args[1] == "" {
		fmt.Fprintf(stderr, "Usage: %s <FILENAME>\n", args[0])
		return 1
	}
	res, err := solver.SolveFile(args[1])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%d\n", res.Value)
	return 0
}
