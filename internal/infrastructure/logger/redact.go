package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// RedactLevel controls how user supplied content appears in logs.
type RedactLevel string

const (
	// RedactAll replaces user content entirely.
	RedactAll RedactLevel = "redact"
	// RedactHash replaces contact details and user ids with salted hashes.
	RedactHash RedactLevel = "hash"
	// RedactNone logs content as received.
	RedactNone RedactLevel = "full"
)

const redacted = "[REDACTED]"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// Redactor scrubs user ids and contact details before they reach the logs.
// A nil Redactor passes everything through.
type Redactor struct {
	level RedactLevel
	salt  string
}

// NewRedactor builds a redactor. Unknown levels fall back to RedactHash.
func NewRedactor(level RedactLevel, salt string) *Redactor {
	switch level {
	case RedactAll, RedactHash, RedactNone:
	default:
		level = RedactHash
	}
	return &Redactor{level: level, salt: salt}
}

// Text scrubs free text such as a message or query value.
func (r *Redactor) Text(s string) string {
	if r == nil || s == "" {
		return s
	}
	switch r.level {
	case RedactNone:
		return s
	case RedactAll:
		return redacted
	}
	// cards before phones; a card number contains phone-shaped runs
	s = cardPattern.ReplaceAllString(s, "[CARD:REDACTED]")
	s = emailPattern.ReplaceAllStringFunc(s, func(m string) string { return "[EMAIL:" + r.hash(m) + "]" })
	s = phonePattern.ReplaceAllStringFunc(s, func(m string) string { return "[PHONE:" + r.hash(m) + "]" })
	s = ipv4Pattern.ReplaceAllStringFunc(s, func(m string) string { return "[IP:" + r.hash(m) + "]" })
	return s
}

// UserID hashes or hides a caller id.
func (r *Redactor) UserID(id string) string {
	if r == nil || id == "" {
		return id
	}
	switch r.level {
	case RedactNone:
		return id
	case RedactAll:
		return redacted
	}
	return r.hash(id)
}

// Query scrubs a raw URL query string. user_id values are treated as ids,
// everything else as text.
func (r *Redactor) Query(raw string) string {
	if r == nil || raw == "" || r.level == RedactNone {
		return raw
	}
	pairs := strings.Split(raw, "&")
	for i, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			decoded = value
		}
		if key == "user_id" {
			pairs[i] = key + "=" + r.UserID(decoded)
			continue
		}
		pairs[i] = key + "=" + r.Text(decoded)
	}
	return strings.Join(pairs, "&")
}

func (r *Redactor) hash(s string) string {
	sum := sha256.Sum256([]byte(s + r.salt))
	return hex.EncodeToString(sum[:])[:8]
}
