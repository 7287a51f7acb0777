// Command rematch matches functions and data between binaries.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/rematch/internal/cli"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
