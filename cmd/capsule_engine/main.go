// Package main provides the entry point for the capsule engine: the REST API
// server, the background worker, and a synchronous CLI generation mode.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "capsule_engine",
	Short: "AI capsule generation engine",
	Long:  "Capsule Engine turns a topic into a structured micro-course (modules, lessons, practice questions) plus study artifacts, generated by an LLM and validated against strict schemas.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
