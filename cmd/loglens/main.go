// loglens - Log File Summarizer
//
// loglens parses application log files into records and reports level
// counts, malformed lines, the most common errors and a timeline.
package main

import (
	"os"

	"github.com/ccollicutt/loglens/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
