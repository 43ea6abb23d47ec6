package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vsinha/fuelrecon/pkg/interfaces/cli/commands"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
