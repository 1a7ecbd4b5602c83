package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mcoot/boardbank/internal/model"
)

// Amount holds a client-supplied amount as a JSON number or numeric string.
// Conversion happens in Value so a bad amount is reported as a validation
// failure rather than a decode failure.
type Amount struct {
	raw json.RawMessage
}

// NewAmount wraps an integer amount
func NewAmount(v int64) Amount {
	return Amount{raw: json.RawMessage(strconv.FormatInt(v, 10))}
}

// UnmarshalJSON keeps the raw token for later conversion
func (a *Amount) UnmarshalJSON(data []byte) error {
	a.raw = append(a.raw[:0], data...)
	return nil
}

// MarshalJSON writes the amount back out as given
func (a Amount) MarshalJSON() ([]byte, error) {
	if len(a.raw) == 0 {
		return []byte("null"), nil
	}
	return a.raw, nil
}

// Value converts the amount to a positive integer no larger than model.MaxAmount
func (a Amount) Value() (int64, error) {
	raw := bytes.TrimSpace(a.raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: amount is required", model.ErrInvalidAmount)
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", model.ErrInvalidAmount, err)
		}
		text = strings.TrimSpace(s)
	}

	v, err := parseInteger(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", model.ErrInvalidAmount, text)
	}
	if err := model.ValidateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

func parseInteger(text string) (int64, error) {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, nil
	}

	// JSON clients may send 500.0 or 5e2
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > float64(model.MaxAmount)+1 {
		return 0, errors.New("not an integer")
	}
	return int64(f), nil
}
