package addressing

import (
	"fmt"
	"strconv"
	"strings"
)

// Version selects an addressing scheme.
type Version int

const (
	// V1 is the legacy asymmetric scheme: recipient scope, owner-less AAD.
	V1 Version = 1
	// V2 is the current symmetric scheme: pair context, owner-bound AAD.
	V2 Version = 2
)

// String returns "v1" or "v2".
func (v Version) String() string {
	return "v" + strconv.Itoa(int(v))
}

// ParseVersion accepts "1", "2", "v1" or "v2".
func ParseVersion(s string) (Version, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	v := Version(n)
	if v != V1 && v != V2 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	return v, nil
}

// Strategy derives the directory segment and AAD for one addressing version.
type Strategy interface {
	// Version identifies the scheme.
	Version() Version
	// Segment returns the scope or context segment objects from sender to
	// recipient are filed under.
	Segment(sender, recipient string) (string, error)
	// AAD returns the authenticated context for an object at path with id,
	// owned by owner. V1 ignores owner.
	AAD(purpose Purpose, owner, path, id string) (string, error)
}

// LegacyScope is the v1 strategy.
type LegacyScope struct{}

// Version implements Strategy.
func (LegacyScope) Version() Version { return V1 }

// Segment implements Strategy; only the recipient participates.
func (LegacyScope) Segment(_, recipient string) (string, error) {
	return RecipientScope(recipient)
}

// AAD implements Strategy.
func (LegacyScope) AAD(purpose Purpose, _, path, id string) (string, error) {
	return BuildAAD(purpose, path, id)
}

// SymmetricContext is the v2 strategy.
type SymmetricContext struct{}

// Version implements Strategy.
func (SymmetricContext) Version() Version { return V2 }

// Segment implements Strategy; the result does not depend on argument order.
func (SymmetricContext) Segment(sender, recipient string) (string, error) {
	return ContextID(sender, recipient)
}

// AAD implements Strategy.
func (SymmetricContext) AAD(purpose Purpose, owner, path, id string) (string, error) {
	return BuildOwnedAAD(purpose, owner, path, id)
}

// StrategyFor returns the strategy for v.
func StrategyFor(v Version) (Strategy, error) {
	switch v {
	case V1:
		return LegacyScope{}, nil
	case V2:
		return SymmetricContext{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, int(v))
	}
}
