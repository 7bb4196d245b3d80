package ai

import (
	"fmt"
	"strings"

	"lillith/internal/apperrors"
)

// Credential is one Gemini API key and its position in the pool.
type Credential struct {
	Index int
	Key   string
}

// String masks the key so credentials can be logged.
func (c Credential) String() string {
	if len(c.Key) <= 4 {
		return fmt.Sprintf("key#%d", c.Index+1)
	}
	return fmt.Sprintf("key#%d(...%s)", c.Index+1, c.Key[len(c.Key)-4:])
}

// CredentialPool is an ordered, non-empty set of interchangeable API keys.
// It is immutable after construction and safe to share.
type CredentialPool struct {
	creds []Credential
}

// NewCredentialPool builds a pool from keys, skipping blanks.
func NewCredentialPool(keys []string) (*CredentialPool, error) {
	creds := make([]Credential, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		creds = append(creds, Credential{Index: len(creds), Key: k})
	}
	if len(creds) == 0 {
		return nil, apperrors.ErrNoCredentials
	}
	return &CredentialPool{creds: creds}, nil
}

// Len returns the number of credentials.
func (p *CredentialPool) Len() int { return len(p.creds) }

// At returns the credential at i, wrapping around the pool.
func (p *CredentialPool) At(i int) Credential {
	n := len(p.creds)
	return p.creds[((i%n)+n)%n]
}

// Cursor returns a fresh cursor positioned at the first credential.
func (p *CredentialPool) Cursor() *Cursor {
	return &Cursor{pool: p}
}

// Cursor walks a pool round-robin. A cursor belongs to a single ingestion
// run and is not safe for concurrent use.
type Cursor struct {
	pool *CredentialPool
	pos  int
}

// Current returns the active credential.
func (c *Cursor) Current() Credential { return c.pool.creds[c.pos] }

// Index is the position of the active credential.
func (c *Cursor) Index() int { return c.pos }

// Rotate advances to the next credential, wrapping after the last.
func (c *Cursor) Rotate() Credential {
	c.pos = (c.pos + 1) % len(c.pool.creds)
	return c.Current()
}

// Len is the size of the underlying pool.
func (c *Cursor) Len() int { return len(c.pool.creds) }
