// The main package for the goldpan executable.
package main

import (
	"github.com/goldpan/goldpan/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
