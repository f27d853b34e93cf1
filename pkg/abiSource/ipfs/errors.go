package ipfs

import "errors"

var ErrNoMetadata = errors.New("CBOR marker sequence not found")
