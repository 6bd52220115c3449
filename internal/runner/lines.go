package runner

import (
	"bufio"
	"io"
	"strings"
)

// readLines drains r until EOF or a read error, returning every non-empty
// line in arrival order. Lines may be terminated by "\n" or "\r\n"; a final
// unterminated line is kept.
func readLines(r io.Reader) []string {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			return lines
		}
	}
}
