package internal

import (
	"regexp"
)

const (
	// A valid attribute name starts with a letter or underscore and holds
	// only letters, digits, underscores, dots and dashes. Header lines are
	// split on whitespace, so anything else would not survive a round trip.
	pattern = `^[\pL_][\pL\pN_.\-]*$`
	// Names that would be mistaken for header structure lines.
	antiPattern = `^(begin_of_head|end_of_head|key|gfc|gfct|GRCOF2|META)$`
)

var (
	re     *regexp.Regexp
	antiRe *regexp.Regexp
)

func init() {
	var err error
	re, err = regexp.Compile(pattern)
	if err != nil {
		panic(err)
	}
	antiRe, err = regexp.Compile(antiPattern)
	if err != nil {
		panic(err)
	}
}

// IsValidAttributeName returns true if name can be written as a header key.
func IsValidAttributeName(name string) bool {
	return re.MatchString(name) && !antiRe.MatchString(name)
}
