package main

import (
	"os"

	"github.com/rustyeddy/newstrader/cmd/newstrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
