// Command auria runs the AURIA agent: an OpenAI-style chat completions
// front end that routes requests to a pool of inference workers.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
