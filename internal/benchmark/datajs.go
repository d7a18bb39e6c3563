package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DataJSPrefix is the assignment the chart page expects in front of the JSON document.
const DataJSPrefix = "window.BENCHMARK_DATA = "

// DecodeHistory reads a history document, either plain JSON or the data.js form.
func DecodeHistory(r io.Reader) (History, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return History{}, fmt.Errorf("failed to read history: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return History{Entries: map[string][]Entry{}}, nil
	}

	if i := bytes.IndexByte(raw, '{'); i > 0 {
		// window.BENCHMARK_DATA = { ... };
		raw = raw[i:]
	}
	raw = bytes.TrimSuffix(raw, []byte(";"))

	var h History
	if err := json.Unmarshal(raw, &h); err != nil {
		return History{}, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return h, nil
}

// EncodeHistory writes h as indented JSON, wrapped for data.js when asDataJS is set.
func EncodeHistory(w io.Writer, h History, asDataJS bool) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if asDataJS {
		if _, err := io.WriteString(w, DataJSPrefix); err != nil {
			return err
		}
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// IsDataJSPath reports whether a path should be written in the data.js form.
func IsDataJSPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".js")
}
