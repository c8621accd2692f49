package browser

import (
	"fmt"
)

type NotFoundError struct {
	Candidates []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no chromium-based browser found after checking %d known locations, set BROWSER_PATH to the executable", len(e.Candidates))
}

func NewNotFoundError(candidates []string) error {
	return &NotFoundError{
		Candidates: candidates,
	}
}
