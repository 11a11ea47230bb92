package main

import (
	"os"

	"github.com/dshills/gradlerec/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
