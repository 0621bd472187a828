// Package main provides the entry point for the newsbrief agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brief_agent",
	Short: "Daily news brief generator",
	Long:  "brief_agent collects the day's issues, analyzes them with an LLM, and archives a structured daily brief. It serves the archive and asynchronous analysis jobs over a REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
