// Command shconv inspects and converts spherical harmonic coefficient files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRoot(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
