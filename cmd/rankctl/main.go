// rankctl inspects and repairs catalog positions from the command line.
// Usage: rankctl <command> --scheme food_packages [options]
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
