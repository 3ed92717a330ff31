package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes
const (
	exitError    = 1
	exitFindings = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errFindingsPresent) {
			os.Exit(exitFindings)
		}
		os.Exit(exitError)
	}
}
