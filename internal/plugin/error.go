package plugin

import (
	"fmt"
	"strings"
)

type UnexpectedStatusCodeError struct {
	Got  int
	Want []int
}

func (e *UnexpectedStatusCodeError) Error() string {
	return fmt.Sprintf("unexpected status code: got %d, want one of %d", e.Got, e.Want)
}

func NewUnexpectedStatusCodeError(got int, want ...int) error {
	return &UnexpectedStatusCodeError{
		Got:  got,
		Want: want,
	}
}

type UnavailableError struct {
	Names []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("plugins could not be provisioned: %s", strings.Join(e.Names, ", "))
}

func NewUnavailableError(names ...string) error {
	return &UnavailableError{
		Names: names,
	}
}
