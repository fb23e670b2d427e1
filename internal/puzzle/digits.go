package puzzle

import (
	"encoding/json"
	"fmt"
)

// Target is the value every puzzle must reach.
const Target = 100

// Size is the number of digits in a puzzle.
const Size = 6

// Digits is an ordered, fixed-size digit sequence. It is a value type so a
// copy handed to a participant can never alter the issued puzzle.
type Digits [Size]uint8

// ParseDigits parses a string such as "123456".
func ParseDigits(s string) (Digits, error) {
	var d Digits
	if len(s) != Size {
		return d, fmt.Errorf("puzzle must have exactly %d digits, got %d", Size, len(s))
	}
	for i := 0; i < Size; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return d, fmt.Errorf("invalid digit %q at position %d", c, i)
		}
		d[i] = c - '0'
	}
	return d, nil
}

// String renders the digits without separators.
func (d Digits) String() string {
	var b [Size]byte
	for i, v := range d {
		b[i] = '0' + v
	}
	return string(b[:])
}

// MarshalJSON encodes the digits as their string form, e.g. "123456".
func (d Digits) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the string form produced by MarshalJSON.
func (d *Digits) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("digits must be a string: %w", err)
	}
	parsed, err := ParseDigits(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Sequence is an issued puzzle. It is immutable once generated and shared by
// value with every match participant.
type Sequence struct {
	Digits     Digits     `json:"digits"`
	Difficulty Difficulty `json:"difficulty"`
	Target     int        `json:"target"`
}

// NewSequence builds a Sequence for the standard target.
func NewSequence(d Digits, difficulty Difficulty) Sequence {
	return Sequence{Digits: d, Difficulty: difficulty, Target: Target}
}

// String returns the digit string of the sequence.
func (s Sequence) String() string {
	return s.Digits.String()
}
