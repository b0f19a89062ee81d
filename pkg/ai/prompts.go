package ai

import (
	"fmt"
	"strings"
)

const summaryInstructions = `For the following files, generate a high-level summary of test cases
(without writing the full code).
Each test case should include:
- Test case name
- Purpose
- Input
- Expected Output`

const fullCodeInstructions = `Convert the following test case summary into fully working %s test code.
Include imports, setup, and mock dependencies as needed.
Ensure the tests are runnable immediately.`

// buildSummaryPrompt asks for test case outlines covering files
func buildSummaryPrompt(files []File) string {
	var sb strings.Builder
	sb.WriteString(summaryInstructions)
	sb.WriteString("\n\nFiles:\n")
	writeFiles(&sb, files)
	return sb.String()
}

// buildFullCodePrompt asks for runnable framework code from summary,
// appending the original sources when present
func buildFullCodePrompt(summary, framework string, files []File) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, fullCodeInstructions, framework)
	sb.WriteString("\n\nTest Summary:\n")
	sb.WriteString(summary)

	if len(files) > 0 {
		sb.WriteString("\n\nOriginal Source Files for Reference:\n")
		writeFiles(&sb, files)
	}
	return sb.String()
}

func writeFiles(sb *strings.Builder, files []File) {
	for i, f := range files {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(sb, "File: %s\n%s", f.Path, f.Content)
	}
}
