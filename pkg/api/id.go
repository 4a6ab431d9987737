package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	messageIDPrefix = "msg_"
	callIDPrefix    = "call_"
	jobIDPrefix     = "job_"
)

var (
	messageIDPattern = regexp.MustCompile(`^msg_[a-zA-Z0-9]{24}$`)
	callIDPattern    = regexp.MustCompile(`^call_[a-zA-Z0-9]{24}$`)
	jobIDPattern     = regexp.MustCompile(`^job_[a-zA-Z0-9]{24}$`)
)

// NewMessageID generates a new message ID with the "msg_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewMessageID() string {
	return messageIDPrefix + randomAlphanumeric(idLength)
}

// NewCallID generates a new tool call ID with the "call_" prefix.
func NewCallID() string {
	return callIDPrefix + randomAlphanumeric(idLength)
}

// NewJobID generates a new queued job ID with the "job_" prefix.
func NewJobID() string {
	return jobIDPrefix + randomAlphanumeric(idLength)
}

// ValidateMessageID checks whether the given string is a valid message ID.
func ValidateMessageID(id string) bool {
	return messageIDPattern.MatchString(id)
}

// ValidateCallID checks whether the given string is a valid tool call ID.
func ValidateCallID(id string) bool {
	return callIDPattern.MatchString(id)
}

// ValidateJobID checks whether the given string is a valid job ID.
func ValidateJobID(id string) bool {
	return jobIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
