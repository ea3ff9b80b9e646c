package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
)

// Entry point for the application
func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, newPrinter(os.Stderr).error("Error: "+err.Error()))
		os.Exit(1)
	}
}
