package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hallusearch/hallusearch/internal/model"
)

// maxLineBytes bounds a single JSONL line (answers can be large)
const maxLineBytes = 16 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadRecords reads input records from a .jsonl file or a directory of
// .jsonl files (processed in lexicographic order). A malformed line fails
// the whole run with the offending file and line number: it signals a
// corrupt batch, not a degradable anomaly.
func ReadRecords(path string) ([]model.InputRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read input directory: %w", err)
		}

		var records []model.InputRecord
		found := false
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".jsonl") {
				continue
			}
			found = true
			recs, err := readRecordsFile(filepath.Join(path, entry.Name()))
			if err != nil {
				return nil, err
			}
			records = append(records, recs...)
		}
		if !found {
			return nil, fmt.Errorf("no .jsonl files found in directory: %s", path)
		}
		return records, nil
	}

	if !strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return nil, fmt.Errorf("expected a .jsonl file or directory, got: %s", path)
	}
	return readRecordsFile(path)
}

func readRecordsFile(path string) ([]model.InputRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []model.InputRecord

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if lineNo == 1 {
			// Tolerate a BOM on Windows-produced files
			line = bytes.TrimPrefix(line, utf8BOM)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var rec model.InputRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return records, nil
}

// WriteRecords writes one JSON line per output record, creating the parent
// directory if needed
func WriteRecords(path string, records []model.OutputRecord) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
