package glyph

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadAlphabet reads one glyph per line from the provided file path.
func LoadAlphabet(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only alphabet file.
			_ = cerr
		}
	}()

	var glyphs []string
	seen := map[string]struct{}{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		glyphs = append(glyphs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(glyphs) == 0 {
		return nil, fmt.Errorf("alphabet is empty")
	}
	return glyphs, nil
}
