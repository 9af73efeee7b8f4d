package risk

import "errors"

// Sentinel kinds for risk assessment errors.
var (
	ErrUnknownCommodity = errors.New("unknown commodity")
	ErrNeighborQuery    = errors.New("neighbor query failed")
)
