package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dmarquez/rlaunch/cmd/rlaunch/cmd"
	"github.com/dmarquez/rlaunch/pkg/launch"
)

func main() {
	if err := cmd.Execute(); err != nil {
		// The launcher's exit status is the trainer's exit status
		var exitErr *launch.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
