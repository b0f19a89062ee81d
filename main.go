package main

import "github.com/mauli-16/GitHub-TestCaseGen/cmd"

func main() {
	cmd.Execute()
}
