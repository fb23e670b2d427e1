package puzzle

import (
	"fmt"
	"strings"
)

// StripDigits returns only the ASCII digits of s, in order.
func StripDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// VerifyDigitOrder confirms the candidate keeps the puzzle digits exactly:
// same length, same order, nothing inserted or dropped.
func VerifyDigitOrder(seq Sequence, candidate string) error {
	return verifyDigitOrder(seq, Normalize(candidate))
}

func verifyDigitOrder(seq Sequence, normalized string) error {
	if want, got := seq.Digits.String(), StripDigits(normalized); got != want {
		return fmt.Errorf("%w: expected digits %s, got %q", ErrDigitOrderViolation, want, got)
	}
	return nil
}

// Verify checks the digit order and then evaluates the candidate. The
// returned error is one of the recoverable kinds (ErrDigitOrderViolation,
// ErrParse, ErrArithmetic); a nil error with a value other than the target
// means the expression is well-formed but wrong.
func Verify(seq Sequence, candidate string) (float64, error) {
	normalized := Normalize(candidate)
	if err := verifyDigitOrder(seq, normalized); err != nil {
		return 0, err
	}

	n, err := parseNormalized(normalized)
	if err != nil {
		return 0, err
	}
	return n.Eval()
}

// Check reports whether candidate solves seq.
func Check(seq Sequence, candidate string) bool {
	v, err := Verify(seq, candidate)
	return err == nil && Matches(v, seq.target())
}

func (s Sequence) target() int {
	if s.Target == 0 {
		return Target
	}
	return s.Target
}
