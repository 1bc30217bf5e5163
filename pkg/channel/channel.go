// Package channel defines channel identity. A direct channel between two
// users has a canonical identifier that encodes both participants in
// sorted order, so the same pair always resolves to the same channel no
// matter who initiates.
package channel

import (
	"errors"
	"fmt"
	"strings"
)

const directPrefix = "dm:"

// ErrMalformedID is returned when a direct channel identifier cannot be
// decoded into two participant identities.
var ErrMalformedID = errors.New("channel: malformed direct channel id")

// Kind distinguishes 1:1 channels from broader ones.
type Kind string

const (
	KindDirect Kind = "direct"
	KindGroup  Kind = "group"
)

// DirectID returns the canonical identifier for the direct channel
// between a and b. DirectID(a, b) == DirectID(b, a). User ids must not
// contain ':': it is the id separator, and an id carrying one produces
// an identifier ParseDirect rejects rather than mis-splits.
func DirectID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s%s:%s", directPrefix, a, b)
}

// IsDirect reports whether id names a direct channel.
func IsDirect(id string) bool {
	return strings.HasPrefix(id, directPrefix)
}

// KindOf classifies a channel identifier.
func KindOf(id string) Kind {
	if IsDirect(id) {
		return KindDirect
	}
	return KindGroup
}

// ParseDirect decodes the two participants of a direct channel id.
func ParseDirect(id string) (string, string, error) {
	if !IsDirect(id) {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return parts[1], parts[2], nil
}

// Participants returns both members of a direct channel, or an error for
// group channels whose roster is not encoded in the identifier.
func Participants(id string) ([]string, error) {
	a, b, err := ParseDirect(id)
	if err != nil {
		return nil, err
	}
	return []string{a, b}, nil
}

// Other returns the participant of a direct channel that is not self.
func Other(id, self string) (string, error) {
	a, b, err := ParseDirect(id)
	if err != nil {
		return "", err
	}
	if a == self {
		return b, nil
	}
	return a, nil
}
