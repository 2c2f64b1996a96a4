// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"

	"voicefx/cmd"
	"voicefx/pkg/build"
)

func main() {
	if err := build.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(cmd.Main())
}
