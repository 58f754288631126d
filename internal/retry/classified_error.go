// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

package retry

import "fmt"

// ClassifiedError pairs an underlying error with its ErrorKind
// classification, so callers can both log/wrap the original error and
// drive Decide off of its Kind via errors.As.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

// Classify wraps err with kind. Classify(kind, nil) returns nil.
func Classify(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err if it (or something it wraps) is
// a *ClassifiedError, returning ok=false otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ClassifiedError
	if asClassified(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// asClassified walks err's single Unwrap() chain looking for a
// *ClassifiedError, much as errors.As does; unlike errors.As it does not
// descend into errors that wrap several errors (errors.Join).
func asClassified(err error, target **ClassifiedError) bool {
	for err != nil {
		if ce, ok := err.(*ClassifiedError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
