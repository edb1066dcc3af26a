package event

import (
	"fmt"
	"strings"
	"time"
)

// Identity is the acting user, captured from the environment at creation time
// and recorded verbatim on each event.
type Identity struct {
	Author string `json:"author" yaml:"author"`
	Email  string `json:"email" yaml:"email"`
}

// Validate checks that the author can name a cube file.
func (id Identity) Validate() error {
	return ValidateAuthor(id.Author)
}

// ValidateAuthor checks an author identifier used as a file name.
func ValidateAuthor(author string) error {
	switch {
	case author == "":
		return ErrNoIdentity
	case author == "." || author == "..":
		return fmt.Errorf("invalid author %q", author)
	case strings.ContainsAny(author, `/\`+"\x00"):
		return fmt.Errorf("invalid author %q: must not contain path separators", author)
	}
	return nil
}

// Period is a calendar month key, YYYY-MM.
type Period string

const periodLayout = "2006-01"

// PeriodOf returns the period containing t, evaluated in UTC.
func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format(periodLayout))
}

// ParsePeriod validates a YYYY-MM string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil || t.Format(periodLayout) != s {
		return "", fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	return Period(s), nil
}

// String implements fmt.Stringer.
func (p Period) String() string {
	return string(p)
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() (time.Time, error) {
	return time.Parse(periodLayout, string(p))
}
