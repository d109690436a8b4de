package main

import (
	"os"

	"github.com/swahan/jobfinder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
