package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errCheckFailed) {
			failColor.Fprint(os.Stderr, "Error: ")
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
