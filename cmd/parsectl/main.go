// Command parsectl parses documents and queries a local SQLite index from the
// command line.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/article-parser/cmd/parsectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
