package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Ctrl-C already produced a summary; the bare cancellation adds nothing.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "subburn: %v\n", err)
		}
		os.Exit(1)
	}
}
