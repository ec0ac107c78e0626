package proto

import (
	"bytes"
	"fmt"
	"strconv"
)

// FlexInt is an int that unmarshals from either a JSON number or a quoted
// digit string. Legacy clients of this protocol sent numeric fields such as
// priority and quotas as strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	*f = FlexInt(v)
	return nil
}

func (f FlexInt) Int() int { return int(f) }
