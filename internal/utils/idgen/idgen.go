// Package idgen mints prefixed, time-sortable public identifiers.
package idgen

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes used for public identifiers.
const (
	PrefixMessage = "msg"
	PrefixUpload  = "upl"
	PrefixExport  = "exp"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// New returns "<prefix>_<ulid>" in lower case.
func New(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return prefix + "_" + strings.ToLower(id.String())
}

// HasPrefix reports whether value is a valid id minted with prefix.
func HasPrefix(value, prefix string) bool {
	if !strings.HasPrefix(value, prefix+"_") {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(value, prefix+"_")))
	return err == nil
}
