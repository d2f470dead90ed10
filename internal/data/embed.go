package data

import (
	"embed"
	"os"
)

//go:embed defaults/*.yaml
var defaults embed.FS

// readOrDefault reads path when given and present, else the embedded
// default. A present-but-unreadable file is an error, not a fallthrough.
func readOrDefault(path, name string) ([]byte, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			return b, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return defaults.ReadFile("defaults/" + name)
}
