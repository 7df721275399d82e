package addressing

import "errors"

const (
	// PathPrefix is the versioned root of every Paykit storage path.
	PathPrefix = "/pub/paykit.app/v0"

	// AADPrefix opens every Paykit AAD string.
	AADPrefix = "paykit:v0"

	// SegmentLength is the length of a hex-encoded scope or context id.
	SegmentLength = 64
)

// Object-kind subpaths below PathPrefix.
const (
	requestsSubpath  = "requests"
	proposalsSubpath = "subscriptions/proposals"
	noiseSubpath     = "noise"
	handoffSubpath   = "handoff"
	acksSubpath      = "acks"
	contextSeparator = ":"
	aadSeparator     = ":"
	pathSeparator    = "/"
)

// Purpose names the kind of object an AAD string is bound to.
type Purpose string

const (
	PurposeRequest              Purpose = "request"
	PurposeSubscriptionProposal Purpose = "subscription_proposal"
	PurposeHandoff              Purpose = "handoff"
	PurposeAck                  Purpose = "ack"
)

// Valid reports whether p is one of the defined purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeRequest, PurposeSubscriptionProposal, PurposeHandoff, PurposeAck:
		return true
	}
	return false
}

var (
	// ErrInvalidScope indicates a scope/context segment that is not 64 lowercase hex chars
	ErrInvalidScope = errors.New("invalid scope segment")

	// ErrInvalidPath indicates a path that is not a Paykit storage path
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrInvalidPurpose indicates an unknown AAD purpose
	ErrInvalidPurpose = errors.New("invalid aad purpose")

	// ErrUnknownVersion indicates an unsupported addressing version
	ErrUnknownVersion = errors.New("unknown addressing version")
)
