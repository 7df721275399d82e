package mailbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/paykit/addressing"
	"github.com/opd-ai/paykit/identity"
	"github.com/opd-ai/paykit/sealedblob"
)

// Kind is a mailbox object kind.
type Kind int

const (
	// KindRequest is a payment request.
	KindRequest Kind = iota
	// KindSubscriptionProposal is a subscription proposal.
	KindSubscriptionProposal
)

// String returns the kind's AAD purpose.
func (k Kind) String() string {
	return string(k.purpose())
}

func (k Kind) purpose() addressing.Purpose {
	if k == KindSubscriptionProposal {
		return addressing.PurposeSubscriptionProposal
	}
	return addressing.PurposeRequest
}

func (k Kind) valid() bool {
	return k == KindRequest || k == KindSubscriptionProposal
}

func (k Kind) path(s addressing.Strategy, sender, recipient, id string) (string, error) {
	if k == KindSubscriptionProposal {
		return addressing.SubscriptionProposalPathFor(s, sender, recipient, id)
	}
	return addressing.RequestPathFor(s, sender, recipient, id)
}

func (k Kind) dir(s addressing.Strategy, sender, recipient string) (string, error) {
	if k == KindSubscriptionProposal {
		return addressing.SubscriptionProposalDirFor(s, sender, recipient)
	}
	return addressing.RequestDirFor(s, sender, recipient)
}

// NewObjectID returns a random object id.
func NewObjectID() string {
	return uuid.NewString()
}

// Mailbox writes and reads sealed objects at strategy-derived paths.
type Mailbox struct {
	strategy addressing.Strategy
	cipher   sealedblob.Cipher
	backend  Backend
	logger   *logrus.Entry
}

// New creates a Mailbox.
func New(strategy addressing.Strategy, cipher sealedblob.Cipher, backend Backend) *Mailbox {
	return &Mailbox{
		strategy: strategy,
		cipher:   cipher,
		backend:  backend,
		logger: logrus.WithFields(logrus.Fields{
			"package": "mailbox",
			"version": strategy.Version().String(),
		}),
	}
}

// Strategy returns the addressing strategy in use.
func (m *Mailbox) Strategy() addressing.Strategy { return m.strategy }

// Send seals payload to recipientKey and stores it in sender's storage. It
// returns the storage path.
func (m *Mailbox) Send(ctx context.Context, kind Kind, sender, recipient string, recipientKey []byte, id string, payload []byte) (string, error) {
	if !kind.valid() {
		return "", fmt.Errorf("%w: kind %d", addressing.ErrInvalidPurpose, int(kind))
	}
	owner, err := identity.Normalize(sender)
	if err != nil {
		return "", fmt.Errorf("sender: %w", err)
	}
	path, err := kind.path(m.strategy, sender, recipient, id)
	if err != nil {
		return "", err
	}
	aad, err := m.strategy.AAD(kind.purpose(), owner.String(), path, id)
	if err != nil {
		return "", err
	}

	envelope, err := m.cipher.Encrypt(payload, recipientKey, aad)
	if err != nil {
		return "", fmt.Errorf("failed to seal %s: %w", kind, err)
	}
	if err := m.backend.Put(ctx, owner, path, envelope); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", kind, err)
	}

	m.logger.WithFields(logrus.Fields{
		"kind": kind.String(),
		"size": len(envelope),
	}).Debug("Stored sealed object")
	return path, nil
}

// Open fetches the object id sent by sender to recipient and decrypts it
// with the recipient's secret key.
func (m *Mailbox) Open(ctx context.Context, kind Kind, sender, recipient, id string, secretKey []byte) ([]byte, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: kind %d", addressing.ErrInvalidPurpose, int(kind))
	}
	path, err := kind.path(m.strategy, sender, recipient, id)
	if err != nil {
		return nil, err
	}
	return m.OpenAt(ctx, kind, sender, path, id, secretKey)
}

// OpenAt fetches and decrypts the object at path in owner's storage. The AAD
// is rebuilt from the location the object was actually read from.
func (m *Mailbox) OpenAt(ctx context.Context, kind Kind, owner, path, id string, secretKey []byte) ([]byte, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: kind %d", addressing.ErrInvalidPurpose, int(kind))
	}
	normalized, err := identity.Normalize(owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	aad, err := m.strategy.AAD(kind.purpose(), normalized.String(), path, id)
	if err != nil {
		return nil, err
	}
	envelope, err := m.backend.Get(ctx, normalized, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
	}

	plaintext, err := m.cipher.Decrypt(envelope, secretKey, aad)
	if err != nil {
		m.logger.WithField("kind", kind.String()).WithError(err).
			Warn("Sealed object failed to open")
		return nil, err
	}
	return plaintext, nil
}

// Pending lists object ids sender has filed for recipient.
func (m *Mailbox) Pending(ctx context.Context, kind Kind, sender, recipient string) ([]string, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: kind %d", addressing.ErrInvalidPurpose, int(kind))
	}
	owner, err := identity.Normalize(sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	dir, err := kind.dir(m.strategy, sender, recipient)
	if err != nil {
		return nil, err
	}
	return m.backend.List(ctx, owner, dir)
}
