package main

import (
	"os"

	"github.com/jlynch25/eventreg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
