// # cmd/pycleaner/main.go
package main

import (
	"os"

	"pycleaner/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
