package conf

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseBoolish parses a yes/no value.
// Besides the values accepted by strconv.ParseBool, it accepts y, yes, n, no, on and off.
func ParseBoolish(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes", "on":
		return true, nil
	case "n", "no", "off", "":
		return false, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value '%s'", s)
	}
	return v, nil
}

// Boolish is a boolean that can be set with yes/no values.
type Boolish bool

// String implements flag.Value.
func (b *Boolish) String() string {
	if b == nil {
		return "false"
	}
	return strconv.FormatBool(bool(*b))
}

// Set implements flag.Value.
func (b *Boolish) Set(s string) error {
	v, err := ParseBoolish(s)
	if err != nil {
		return err
	}
	*b = Boolish(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Boolish) UnmarshalYAML(value *yaml.Node) error {
	return b.Set(value.Value)
}
