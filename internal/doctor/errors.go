package doctor

import (
	stderrors "errors"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// shortError renders err on one line.
func shortError(err error) string {
	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) {
		return hwErr.Short()
	}
	return err.Error()
}

func suggestionOf(err error) string {
	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) {
		return hwErr.Suggestion
	}
	return ""
}
