package db

import "errors"

// BatchError reports that the store rejected a whole insert batch, e.g. a row failed
// validation or violated a constraint. No row of the batch was stored.
// Any other error returned by a Repository is a transport failure.
type BatchError struct {
	Collection string
	Err        error
}

func (e *BatchError) Error() string {
	return e.Err.Error()
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// IsBatchError reports whether err is, or wraps, a *BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}
