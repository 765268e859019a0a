package llm

import (
	"bufio"
	"strings"
)

// ScanSSE decodes "data: ..." payloads from a Server-Sent-Events body.
// Comment lines, event: lines, and blank keep-alives are skipped; onData
// sees only the data payloads it needs to unmarshal, and can stop the
// scan early by returning true (e.g. on a terminal event).
func ScanSSE(scanner *bufio.Scanner, onData func(data string) (stop bool)) error {
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}
		if onData(data) {
			break
		}
	}
	return scanner.Err()
}
