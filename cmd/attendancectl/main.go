package main

import (
	"os"

	"scanattend/cmd/attendancectl/commands"
)

var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
