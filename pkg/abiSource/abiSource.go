// Package abiSource defines where contract ABIs can be loaded from.
package abiSource

import "context"

// AbiSource returns the ABI JSON of a contract. An empty string with a nil
// error means the source has no ABI for the address.
type AbiSource interface {
	FetchAbi(ctx context.Context, address string) (string, error)
	Name() string
}
