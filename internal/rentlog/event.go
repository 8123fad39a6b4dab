package rentlog

import (
	"fmt"
	"time"
)

// Kind is the type of a rental event.
type Kind uint8

const (
	// Rent records a patron taking a copy.
	Rent Kind = 0
	// Return records a patron bringing a copy back.
	Return Kind = 1
)

func (k Kind) String() string {
	switch k {
	case Rent:
		return "RENT"
	case Return:
		return "RETURN"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%w: %d", errUnknownKind, uint8(k))
	}

	return []byte(k.String()), nil
}

func (k Kind) valid() bool {
	return k == Rent || k == Return
}

// Event is one immutable entry of a patron's log.
type Event struct {
	Time  time.Time `json:"time"`
	Kind  Kind      `json:"kind"`
	ISBN  string    `json:"isbn"`
	Title string    `json:"title"`
}

const prettyTimeLayout = "2006-01-02 15:04:05"

// Pretty renders the event as "2006-01-02 15:04:05 - RENT - Title (isbn)"
// with the timestamp shown in loc. A nil loc means local time.
func (e Event) Pretty(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	return fmt.Sprintf("%s - %s - %s (%s)", e.Time.In(loc).Format(prettyTimeLayout), e.Kind, e.Title, e.ISBN)
}
