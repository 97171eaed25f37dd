// Command dbmcp serves SQL, document, and key-value databases to MCP
// clients as tools, resources, and prompts.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
