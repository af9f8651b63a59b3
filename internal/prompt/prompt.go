// Package prompt provides simple interactive prompts for terminal input.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// scanLine reads a single line from stdin byte-by-byte with no buffering.
// This avoids any shared state that could be corrupted by term.ReadPassword
// reading from the raw file descriptor.
func scanLine() (string, bool) {
	var buf []byte
	b := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(b)
		if err != nil || n == 0 {
			if len(buf) > 0 {
				return strings.TrimSpace(string(buf)), true
			}
			return "", false
		}
		if b[0] == '\n' {
			return strings.TrimSpace(string(buf)), true
		}
		if b[0] != '\r' {
			buf = append(buf, b[0])
		}
	}
}

// ReadLine prompts for a single line of input.
func ReadLine(label string) string {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, _ := scanLine()
	return line
}

// ReadSecret prompts for input with echo disabled. Used for access tokens
// so they never appear on screen or in scrollback.
func ReadSecret(label string) string {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		line, _ := scanLine()
		return line
	}
	return strings.TrimSpace(string(secret))
}

// Confirm asks a yes/no question and returns true for yes.
func Confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s (yes/no): ", question)
	answer, ok := scanLine()
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "yes" || answer == "y"
}
