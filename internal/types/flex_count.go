package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FlexCount is a non-negative counter that can be unmarshaled from a JSON
// number (integral floats included) or a numeric string.
type FlexCount uint64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexCount) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("FlexCount: expected number or numeric string")
		}
		n = json.Number(s)
	}

	if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		if u > math.MaxInt64 {
			return fmt.Errorf("FlexCount: count %q out of range", n.String())
		}
		*f = FlexCount(u)
		return nil
	}

	// Stored as a signed 64-bit column. float64(MaxInt64) rounds up to 2^63.
	fv, err := n.Float64()
	if err != nil || fv < 0 || fv != math.Trunc(fv) || fv >= math.MaxInt64 {
		return fmt.Errorf("FlexCount: invalid count %q", n.String())
	}
	*f = FlexCount(fv)
	return nil
}

// Uint64 converts FlexCount back to uint64.
func (f FlexCount) Uint64() uint64 {
	return uint64(f)
}
