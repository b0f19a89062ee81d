// Command server runs only the testgen HTTP service, configured from the
// environment. It is the entry point for container deployments.
package main

import (
	"os"

	"github.com/mauli-16/GitHub-TestCaseGen/cmd"
)

func main() {
	if err := cmd.RunServer(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
