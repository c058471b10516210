package main

import (
	"os"

	"github.com/tessro/cleandl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
