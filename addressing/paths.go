package addressing

import (
	"strings"

	"github.com/opd-ai/paykit/limits"
)

// RequestPath returns the storage path of a payment request filed under
// segment (a v1 scope or v2 context id).
func RequestPath(segment, requestID string) (string, error) {
	return objectPath(requestsSubpath, segment, "request id", requestID)
}

// RequestDir returns the listing path polled for payment requests.
func RequestDir(segment string) (string, error) {
	return dirPath(requestsSubpath, segment)
}

// SubscriptionProposalPath returns the storage path of a subscription proposal.
func SubscriptionProposalPath(segment, proposalID string) (string, error) {
	return objectPath(proposalsSubpath, segment, "proposal id", proposalID)
}

// SubscriptionProposalDir returns the listing path polled for subscription proposals.
func SubscriptionProposalDir(segment string) (string, error) {
	return dirPath(proposalsSubpath, segment)
}

// NoisePath returns the fixed location of an identity's Noise endpoint record.
func NoisePath() string {
	return join(PathPrefix, noiseSubpath)
}

// HandoffPath returns the storage path of a secure handoff. Handoffs are
// scoped to the requesting session only, not to a counterparty.
func HandoffPath(requestID string) (string, error) {
	if err := limits.ValidateSegment("request id", requestID); err != nil {
		return "", err
	}
	return join(PathPrefix, handoffSubpath, requestID), nil
}

// HandoffDir returns the listing path for secure handoffs.
func HandoffDir() string {
	return join(PathPrefix, handoffSubpath) + pathSeparator
}

// AckPath returns the storage path of an acknowledgement of an object of
// objectType identified by msgID.
func AckPath(objectType, segment, msgID string) (string, error) {
	if err := limits.ValidateSegment("object type", objectType); err != nil {
		return "", err
	}
	return objectPath(join(acksSubpath, objectType), segment, "message id", msgID)
}

// AckDir returns the listing path for acknowledgements of objectType.
func AckDir(objectType, segment string) (string, error) {
	if err := limits.ValidateSegment("object type", objectType); err != nil {
		return "", err
	}
	return dirPath(join(acksSubpath, objectType), segment)
}

// RequestPathFor derives the segment with s and returns the request path.
func RequestPathFor(s Strategy, sender, recipient, requestID string) (string, error) {
	segment, err := s.Segment(sender, recipient)
	if err != nil {
		return "", err
	}
	return RequestPath(segment, requestID)
}

// RequestDirFor derives the segment with s and returns the request listing path.
func RequestDirFor(s Strategy, sender, recipient string) (string, error) {
	segment, err := s.Segment(sender, recipient)
	if err != nil {
		return "", err
	}
	return RequestDir(segment)
}

// SubscriptionProposalPathFor derives the segment with s and returns the proposal path.
func SubscriptionProposalPathFor(s Strategy, provider, subscriber, proposalID string) (string, error) {
	segment, err := s.Segment(provider, subscriber)
	if err != nil {
		return "", err
	}
	return SubscriptionProposalPath(segment, proposalID)
}

// SubscriptionProposalDirFor derives the segment with s and returns the proposal listing path.
func SubscriptionProposalDirFor(s Strategy, provider, subscriber string) (string, error) {
	segment, err := s.Segment(provider, subscriber)
	if err != nil {
		return "", err
	}
	return SubscriptionProposalDir(segment)
}

// AckPathFor derives the segment with s and returns the acknowledgement path.
func AckPathFor(s Strategy, objectType, sender, recipient, msgID string) (string, error) {
	segment, err := s.Segment(sender, recipient)
	if err != nil {
		return "", err
	}
	return AckPath(objectType, segment, msgID)
}

// IsStoragePath reports whether p is rooted at PathPrefix.
func IsStoragePath(p string) bool {
	return strings.HasPrefix(p, PathPrefix+pathSeparator)
}

func objectPath(subpath, segment, idName, id string) (string, error) {
	if err := ValidateSegment(segment); err != nil {
		return "", err
	}
	if err := limits.ValidateSegment(idName, id); err != nil {
		return "", err
	}
	return join(PathPrefix, subpath, segment, id), nil
}

func dirPath(subpath, segment string) (string, error) {
	if err := ValidateSegment(segment); err != nil {
		return "", err
	}
	return join(PathPrefix, subpath, segment) + pathSeparator, nil
}

func join(parts ...string) string {
	return strings.Join(parts, pathSeparator)
}
