package coretools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/neuron/pkg/tool"
)

// ReadFileToolName is the name advertised to the model
const ReadFileToolName = "read_file"

const defaultMaxBytes = 200000

// ReadFile returns a tool that reads files below workspaceRoot.
// An empty root means the current directory.
func ReadFile(workspaceRoot string) *tool.Tool {
	return mustTool(ReadFileToolName, "Read a text file from the workspace.", &tool.Config{
		Properties: map[string]tool.Property{
			"path":      {Type: "string", Description: "File path relative to the workspace", Required: true},
			"max_bytes": {Type: "integer", Description: "Maximum bytes to read (default 200000)"},
		},
	}, func(ctx context.Context, input map[string]interface{}, secrets map[string]string) (string, error) {
		root, err := filepath.Abs(workspaceRoot)
		if err != nil {
			return "", err
		}

		pathValue, _ := input["path"].(string)
		target, err := resolvePathInWorkspace(root, pathValue)
		if err != nil {
			return "", err
		}

		maxBytes := int64(defaultMaxBytes)
		if raw, ok := input["max_bytes"].(float64); ok && raw > 0 {
			maxBytes = int64(raw)
		}

		data, truncated, err := readFileWithLimit(target, maxBytes)
		if err != nil {
			return "", err
		}
		if truncated {
			return fmt.Sprintf("%s\n[truncated after %d bytes]", data, len(data)), nil
		}
		return string(data), nil
	})
}

func readFileWithLimit(path string, limit int64) ([]byte, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, file, limit); err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}

	extra := make([]byte, 1)
	n, _ := file.Read(extra)
	return buf.Bytes(), n > 0, nil
}

func resolvePathInWorkspace(workspaceRoot string, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", fmt.Errorf("path is required")
	}
	if strings.Contains(pathValue, "://") {
		return "", fmt.Errorf("path must be a local file")
	}
	candidate := pathValue
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(workspaceRoot, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(workspaceRoot, candidate)
	if err != nil {
		return "", err
	}
	if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return candidate, nil
	}
	return "", fmt.Errorf("path %q is outside workspace root", pathValue)
}
