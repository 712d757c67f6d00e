// briefing runs the daily financial briefing pipeline once: fetch news,
// summarize, chart, translate and deliver.
//
// Usage:
//
//	briefing [--config=briefing.yaml] [--dry-run] [--continue-on-failure]
//	         [--locales=hi,ar,he] [--topic="..."] [--report=report.json]
//	briefing check [--config=briefing.yaml] [--dry-run]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
