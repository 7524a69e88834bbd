package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"smilestore/internal/domain"
)

func parseType(s string) (domain.EntityType, error) {
	return domain.ParseEntityType(s)
}

// readRecord decodes a JSON object from data, or from file when data is
// empty. A file of "-" reads stdin.
func readRecord(data, file string, stdin io.Reader) (domain.Record, error) {
	var r io.Reader
	switch {
	case data != "":
		var rec domain.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("--data: %w", err)
		}
		return rec, nil
	case file == "-":
		r = stdin
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	default:
		return nil, fmt.Errorf("record required (--data or --file)")
	}
	var rec domain.Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
