package auth

import "time"

// Strategy signs and verifies producer bearer tokens.
type Strategy interface {
	IssueToken(producerID string) (string, error)
	ParseToken(token string) (string, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
