package main

import (
	"fmt"
	"os"
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and hand the OS the exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gewe: %v\n", err)
	}
	os.Exit(code)
}
