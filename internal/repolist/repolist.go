// Package repolist parses repository identifier lists from modal input,
// flags, and files.
package repolist

import (
	"bufio"
	"os"
	"strings"
)

// ParseText splits free-form input into repo identifiers. Entries are
// separated by newlines or commas; blanks and #-comments are dropped.
// Order is preserved.
func ParseText(input string) []string {
	var repos []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				repos = append(repos, part)
			}
		}
	}
	return repos
}

// ParseFile reads a file with one repo identifier per line. Lines starting
// with # are comments; a CSV header row starting with "repo" is skipped
// and only the first comma-separated field of each line is taken.
func ParseFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var repos []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.EqualFold(line, "repo") || strings.HasPrefix(strings.ToLower(line), "repo,") {
			continue
		}
		if idx := strings.Index(line, ","); idx > 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line != "" {
			repos = append(repos, line)
		}
	}
	return repos, scanner.Err()
}
