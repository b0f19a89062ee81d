package github

// File is a decoded file fetched from a repository
type File struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int    `json:"size"`
}
