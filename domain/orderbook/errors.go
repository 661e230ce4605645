package orderbook

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidOrder rejects a submission as a whole; the book is untouched.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvalidQuantity means a quantity mutation would break the
	// remaining >= 0 invariant. Inside the matching loop it is fatal.
	ErrInvalidQuantity = errors.New("invalid quantity")
)
