package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goGuard/jwt"
)

// Entry is the latest issuance or revocation for one (user agent, token type) of a subject.
type Entry struct {
	UserAgent   string        `json:"user_agent" dynamodbav:"user_agent"`
	Type        jwt.TokenType `json:"type" dynamodbav:"type"`
	IssuedAt    int64         `json:"iat" dynamodbav:"iat"`
	Blacklisted bool          `json:"is_blacklisted" dynamodbav:"is_blacklisted"`
}

// Record is the full ledger of a subject. Version 0 means the record does not exist yet.
type Record struct {
	Subject string
	Version uint64
	Entries []Entry
}

// Exists reports whether the record has been persisted.
func (r Record) Exists() bool {
	return r.Version > 0
}

// Find returns the entry for (userAgent, typ).
func (r Record) Find(userAgent string, typ jwt.TokenType) (Entry, bool) {
	if i := r.index(userAgent, typ); i >= 0 {
		return r.Entries[i], true
	}
	return Entry{}, false
}

func (r Record) index(userAgent string, typ jwt.TokenType) int {
	for i, e := range r.Entries {
		if e.UserAgent == userAgent && e.Type == typ {
			return i
		}
	}
	return -1
}

// Put replaces the entry with the same (user agent, type) or appends e.
func (r *Record) Put(e Entry) {
	if i := r.index(e.UserAgent, e.Type); i >= 0 {
		r.Entries[i] = e
		return
	}
	r.Entries = append(r.Entries, e)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	if r.Entries != nil {
		out.Entries = append([]Entry(nil), r.Entries...)
	}
	return out
}

// EncodeEntries is the storage encoding shared by key-value and SQL backends.
func EncodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

// DecodeEntries parses EncodeEntries output. Empty input yields no entries.
func DecodeEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return entries, nil
}
