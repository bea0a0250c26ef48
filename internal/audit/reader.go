package audit

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
)

// ReadAll stream-parses an audit log, skipping malformed lines instead
// of aborting. A torn final line from a crashed writer must not make
// the whole log unreadable.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		log.Printf("[Audit] Skipped %d malformed line(s) in %s", skipped, path)
	}
	return records, scanner.Err()
}
