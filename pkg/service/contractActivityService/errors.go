package contractActivityService

import "fmt"

// RetrievalError is the only error returned by an extraction call. It names
// the address and block range that could not be extracted.
type RetrievalError struct {
	Kind       string
	Address    string
	StartBlock uint64
	EndBlock   uint64
	Err        error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("Couldn't retrieve %s for %s between block #%d and #%d: %v", e.Kind, e.Address, e.StartBlock, e.EndBlock, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
