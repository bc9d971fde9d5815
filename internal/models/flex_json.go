package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Document is a decoded upstream JSON object. Numbers are kept as json.Number.
type Document = map[string]any

// DecodeDocument decodes raw JSON into a Document without losing integer precision.
func DecodeDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("flex decode: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("flex decode: not a JSON object")
	}
	return doc, nil
}

// Wrap embeds a bare match payload under a "data" key. Payloads that are already
// wrapped, or that look like nothing we know, are returned unchanged.
func Wrap(doc Document) Document {
	if _, ok := doc["data"]; ok {
		return doc
	}
	_, hasMeta := doc["metadata"]
	_, hasPlayers := doc["players"]
	if hasMeta || hasPlayers {
		return Document{"data": doc}
	}
	return doc
}

// DataNode returns the object under "data", or the document itself.
func DataNode(doc Document) Document {
	if d, ok := doc["data"].(map[string]any); ok {
		return d
	}
	return doc
}

// lookup walks nested objects by key.
func lookup(v any, path ...string) (any, bool) {
	cur := v
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func object(v any, path ...string) (map[string]any, bool) {
	x, ok := lookup(v, path...)
	if !ok {
		return nil, false
	}
	obj, ok := x.(map[string]any)
	return obj, ok
}

func array(v any, path ...string) ([]any, bool) {
	x, ok := lookup(v, path...)
	if !ok {
		return nil, false
	}
	arr, ok := x.([]any)
	return arr, ok
}

// str returns the string at path. Non-string values yield "", false.
func str(v any, path ...string) (string, bool) {
	x, ok := lookup(v, path...)
	if !ok {
		return "", false
	}
	s, ok := x.(string)
	return s, ok
}

// firstStr returns the first string found among several paths.
func firstStr(v any, paths ...[]string) (string, bool) {
	for _, p := range paths {
		if s, ok := str(v, p...); ok {
			return s, true
		}
	}
	return "", false
}

// integer accepts native numbers and string-encoded numbers, truncating fractions.
func integer(v any, path ...string) (int64, bool) {
	x, ok := lookup(v, path...)
	if !ok {
		return 0, false
	}
	switch n := x.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
			return int64(f), true
		}
	}
	return 0, false
}

// count is integer clamped at zero, defaulting to zero.
func count(v any, path ...string) int {
	n, _ := integer(v, path...)
	if n < 0 {
		return 0
	}
	return int(n)
}

// signed is integer defaulting to zero, negatives allowed.
func signed(v any, path ...string) int {
	n, _ := integer(v, path...)
	return int(n)
}

func float(v any, path ...string) float64 {
	x, ok := lookup(v, path...)
	if !ok {
		return 0
	}
	switch n := x.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case float64:
		return n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return 0
}

func boolean(v any, path ...string) bool {
	x, ok := lookup(v, path...)
	if !ok {
		return false
	}
	switch b := x.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	}
	return false
}
