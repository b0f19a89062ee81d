package ai

// File is a source file handed to the model for context
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
