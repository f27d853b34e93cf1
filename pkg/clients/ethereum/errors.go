package ethereum

import "fmt"

// ConnectivityError is returned when the node cannot be reached.
type ConnectivityError struct {
	Uri string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("couldn't connect to node at '%s': %v", e.Uri, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
