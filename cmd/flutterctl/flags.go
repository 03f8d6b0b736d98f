package main

import (
	"strconv"

	"github.com/spf13/pflag"
)

// optionalInt is an int flag that distinguishes "not set" from zero. The
// target pointer stays nil until the flag is given.
type optionalInt struct {
	target **int
}

var _ pflag.Value = (*optionalInt)(nil)

func (o *optionalInt) String() string {
	if o.target == nil || *o.target == nil {
		return ""
	}
	return strconv.Itoa(**o.target)
}

func (o *optionalInt) Set(raw string) error {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*o.target = &value
	return nil
}

func (o *optionalInt) Type() string {
	return "int"
}
