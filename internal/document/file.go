package document

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// corpusRecord is one line of a JSONL corpus file.
type corpusRecord struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// LoadCorpusFile reads a JSONL corpus file, one document per line.
// Records without an id get a generated one; blank lines are skipped.
func LoadCorpusFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %q: %w: %v", path, ErrSourceUnavailable, err)
	}
	defer f.Close()

	return readCorpus(f, path)
}

func readCorpus(r io.Reader, name string) ([]Document, error) {
	var docs []Document

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec corpusRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", name, line, err)
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]string{}
		}

		docs = append(docs, Document{
			ID:       rec.ID,
			Text:     Normalize(rec.Text),
			Metadata: rec.Metadata,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", name, err)
	}

	return docs, nil
}
