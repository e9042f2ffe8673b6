// Package jsonextract pulls JSON values out of free-form model output.
//
// Model responses often wrap JSON in prose or markdown code fences. The
// helpers here scan for the first balanced object (or array) that is also
// valid JSON and return it untouched.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports that no usable JSON value could be extracted.
type ParseError struct {
	Reason string
	Input  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jsonextract: %s: %v (input: %q)", e.Reason, e.Err, e.Input)
	}
	return fmt.Sprintf("jsonextract: %s (input: %q)", e.Reason, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const snippetLimit = 120

func newParseError(reason, input string, err error) *ParseError {
	snippet := strings.TrimSpace(input)
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit] + "..."
	}
	return &ParseError{Reason: reason, Input: snippet, Err: err}
}

// Object returns the first balanced, valid JSON object found in text.
func Object(text string) (json.RawMessage, error) {
	return extract(text, '{', '}')
}

// Array returns the first balanced, valid JSON array found in text.
func Array(text string) (json.RawMessage, error) {
	return extract(text, '[', ']')
}

// Decode extracts the first JSON object in text and unmarshals it into T.
func Decode[T any](text string) (T, error) {
	var out T
	raw, err := Object(text)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, newParseError("object does not match target type", string(raw), err)
	}
	return out, nil
}

// DecodeArray extracts the first JSON array in text and unmarshals it into []T.
func DecodeArray[T any](text string) ([]T, error) {
	raw, err := Array(text)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, newParseError("array does not match target type", string(raw), err)
	}
	return out, nil
}

func extract(text string, open, close byte) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newParseError("empty input", text, nil)
	}

	start := strings.IndexByte(text, open)
	for start >= 0 {
		end := matchingIndex(text, start, open, close)
		if end < 0 {
			break
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
		next := strings.IndexByte(text[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, newParseError(fmt.Sprintf("no balanced %c...%c value found", open, close), text, nil)
}

// matchingIndex returns the index of the delimiter closing the one at start,
// ignoring delimiters inside JSON strings. It returns -1 when unbalanced.
func matchingIndex(text string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
