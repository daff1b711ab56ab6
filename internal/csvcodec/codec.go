// Package csvcodec reads and writes itineraries as header-first CSV text.
//
// The reader is permissive: rows are scanned one line at a time (a line ends
// at \n, \r\n or a lone \r), short rows are padded and long rows are cut to
// the six record columns.
package csvcodec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

// Header is the first line of every encoded file.
var Header = strings.Join(model.Columns, ",")

// Encode renders records as CSV. The output for a given slice is byte-stable.
func Encode(records []model.Record) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, record := range records {
		for i, field := range record.Fields() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeField(field))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func escapeField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Decode reads CSV text produced by Encode (or a hand-edited variant of it).
// The header line is skipped without checking its contents.
func Decode(r io.Reader) ([]model.Record, error) {
	reader := bufio.NewReader(r)
	records := []model.Record{}
	first := true
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: read csv: %v", model.ErrIOFailure, err)
		}
		atEOF := err != nil
		if atEOF && line == "" {
			break
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if !utf8.ValidString(line) {
			return nil, fmt.Errorf("%w: line is not valid UTF-8", model.ErrMalformedInput)
		}

		// A lone carriage return also ends a line.
		for _, part := range strings.Split(line, "\r") {
			if first {
				first = false
				continue
			}
			records = append(records, model.RecordFromFields(parseLine(part)))
		}
		if atEOF {
			break
		}
	}
	return records, nil
}

// DecodeString is Decode over an in-memory string.
func DecodeString(text string) ([]model.Record, error) {
	return Decode(strings.NewReader(text))
}

func parseLine(line string) []string {
	fields := []string{}
	var current strings.Builder
	inQuotes := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if inQuotes {
			if ch == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					current.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				current.WriteRune(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case ',':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, current.String())
}

// ReadFile decodes the CSV file at path.
func ReadFile(path string) ([]model.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", model.ErrIOFailure, path, err)
	}
	defer file.Close()

	records, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return records, nil
}

// WriteFile encodes records and writes them to path, replacing any
// existing file.
func WriteFile(path string, records []model.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", model.ErrIOFailure, path, err)
	}

	if _, err := io.WriteString(file, Encode(records)); err != nil {
		_ = file.Close()
		return fmt.Errorf("%w: write %s: %v", model.ErrIOFailure, path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", model.ErrIOFailure, path, err)
	}
	return nil
}
