package main

import (
	"fmt"
	"os"

	"github.com/example/mediadb/internal/cli"
	"github.com/example/mediadb/internal/version"
)

func main() {
	if err := cli.Execute(version.String()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
