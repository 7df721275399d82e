package addressing

import (
	"fmt"
	"strings"

	"github.com/opd-ai/paykit/identity"
	"github.com/opd-ai/paykit/limits"
)

// BuildAAD returns the v1 AAD string binding purpose, path and id:
// "paykit:v0:{purpose}:{path}:{id}".
func BuildAAD(purpose Purpose, path, id string) (string, error) {
	if err := validateAADFields(purpose, path, id); err != nil {
		return "", err
	}
	return strings.Join([]string{AADPrefix, string(purpose), path, id}, aadSeparator), nil
}

// BuildOwnedAAD returns the v2 AAD string, which also binds the identity that
// owns the storage slot: "paykit:v0:{purpose}:{owner}:{path}:{id}". A
// ciphertext copied into another owner's slot no longer authenticates.
func BuildOwnedAAD(purpose Purpose, owner, path, id string) (string, error) {
	normalized, err := identity.Normalize(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	if err := validateAADFields(purpose, path, id); err != nil {
		return "", err
	}
	return strings.Join([]string{AADPrefix, string(purpose), string(normalized), path, id}, aadSeparator), nil
}

// RequestAAD is the owner-bound AAD of a payment request.
func RequestAAD(owner, path, requestID string) (string, error) {
	return BuildOwnedAAD(PurposeRequest, owner, path, requestID)
}

// SubscriptionProposalAAD is the owner-bound AAD of a subscription proposal.
func SubscriptionProposalAAD(owner, path, proposalID string) (string, error) {
	return BuildOwnedAAD(PurposeSubscriptionProposal, owner, path, proposalID)
}

// HandoffAAD is the owner-bound AAD of a secure handoff.
func HandoffAAD(owner, path, requestID string) (string, error) {
	return BuildOwnedAAD(PurposeHandoff, owner, path, requestID)
}

// AckAAD is the owner-bound AAD of an acknowledgement.
func AckAAD(owner, path, msgID string) (string, error) {
	return BuildOwnedAAD(PurposeAck, owner, path, msgID)
}

func validateAADFields(purpose Purpose, path, id string) error {
	if !purpose.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPurpose, string(purpose))
	}
	if !IsStoragePath(path) {
		return fmt.Errorf("%w: not rooted at %s", ErrInvalidPath, PathPrefix)
	}
	if strings.Contains(path, aadSeparator) {
		return fmt.Errorf("%w: contains %q", ErrInvalidPath, aadSeparator)
	}
	return limits.ValidateSegment("id", id)
}
