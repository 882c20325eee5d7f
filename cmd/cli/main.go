// chatwrap - Chat Export Year-in-Review
//
// chatwrap parses plain-text chat exports and summarizes them: message
// totals, most active authors, busiest hour and most used emoji.
package main

import (
	"os"

	"github.com/ccollicutt/chatwrap/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
