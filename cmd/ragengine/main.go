// Command ragengine is a local-first retrieval-augmented generation engine:
// it indexes a directory of documents and serves hybrid semantic/keyword
// search over them, either as a one-shot CLI or as an MCP tool surface for
// AI assistants.
package main

import (
	"fmt"
	"os"

	"github.com/localrag/ragengine/cmd/ragengine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
