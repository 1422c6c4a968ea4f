// Package calendar holds the normalized appointment/lead timeline: the
// composite id parsed once into a tagged Ref, and the merge of the two
// record sets into one ordered view.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const leadPrefix = "lead-"

type Kind int

const (
	KindAppointment Kind = iota
	KindLead
)

// Ref identifies one calendar record in either underlying table.
// "lead-<n>" routes to leads, a raw integer routes to appointments.
type Ref struct {
	Kind Kind
	ID   int64
}

var ErrBadRef = errors.New("invalid appointment id")

// ParseRef parses the composite id once at the API boundary, so handlers
// and repositories never re-inspect the prefix string.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, leadPrefix); ok {
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || n <= 0 {
			return Ref{}, ErrBadRef
		}
		return Ref{Kind: KindLead, ID: n}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return Ref{}, ErrBadRef
	}
	return Ref{Kind: KindAppointment, ID: n}, nil
}

// String renders the composite id used on the wire.
func (r Ref) String() string {
	if r.Kind == KindLead {
		return fmt.Sprintf("%s%d", leadPrefix, r.ID)
	}
	return strconv.FormatInt(r.ID, 10)
}
