// Package main is the entry point for the evelog EVE JSON event logger.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/evelog/cmd"
	_ "firestige.xyz/evelog/plugins"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
