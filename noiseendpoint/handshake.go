package noiseendpoint

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/paykit/sealedblob"
)

var (
	// ErrHandshakeNotComplete indicates handshake is still in progress
	ErrHandshakeNotComplete = errors.New("handshake not complete")
	// ErrHandshakeComplete indicates handshake is already complete
	ErrHandshakeComplete = errors.New("handshake already complete")
	// ErrWrongRole indicates a call that the local role cannot make
	ErrWrongRole = errors.New("operation not valid for handshake role")
)

// Role defines whether we're initiating or responding to the handshake.
type Role uint8

const (
	// Initiator dials a published endpoint and knows its static key.
	Initiator Role = iota
	// Responder listens at the published endpoint.
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// CipherSuite is the Noise suite used for endpoint sessions.
var CipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// Handshake is one side of a Noise IK handshake.
type Handshake struct {
	role       Role
	state      *noise.HandshakeState
	sendCipher *noise.CipherState
	recvCipher *noise.CipherState
	complete   bool
	logger     *logrus.Entry
}

// InitiatorConfig builds the Noise configuration for dialing e with local.
func InitiatorConfig(local *StaticKey, e Endpoint) (noise.Config, error) {
	if err := e.Validate(); err != nil {
		return noise.Config{}, err
	}
	peer, err := e.StaticKeyBytes()
	if err != nil {
		return noise.Config{}, err
	}
	cfg, err := baseConfig(local, Initiator)
	if err != nil {
		return noise.Config{}, err
	}
	cfg.PeerStatic = peer
	return cfg, nil
}

// ResponderConfig builds the Noise configuration for the listening side.
func ResponderConfig(local *StaticKey) (noise.Config, error) {
	return baseConfig(local, Responder)
}

func baseConfig(local *StaticKey, role Role) (noise.Config, error) {
	if local == nil || len(local.Private) != KeySize {
		return noise.Config{}, fmt.Errorf("static private key must be %d bytes", KeySize)
	}

	// Re-derive the public half so a mismatched pair is never advertised.
	kp, err := sealedblob.KeyPairFromSecret(local.Private)
	if err != nil {
		return noise.Config{}, fmt.Errorf("failed to derive keypair: %w", err)
	}
	defer kp.Wipe()

	staticKey := noise.DHKey{
		Private: make([]byte, KeySize),
		Public:  make([]byte, KeySize),
	}
	copy(staticKey.Private, kp.Secret[:])
	copy(staticKey.Public, kp.Public[:])

	return noise.Config{
		CipherSuite:   CipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeIK,
		Initiator:     role == Initiator,
		StaticKeypair: staticKey,
	}, nil
}

// NewInitiator creates the dialing side of a handshake toward e.
func NewInitiator(local *StaticKey, e Endpoint) (*Handshake, error) {
	cfg, err := InitiatorConfig(local, e)
	if err != nil {
		return nil, err
	}
	return newHandshake(cfg, Initiator)
}

// NewResponder creates the listening side of a handshake.
func NewResponder(local *StaticKey) (*Handshake, error) {
	cfg, err := ResponderConfig(local)
	if err != nil {
		return nil, err
	}
	return newHandshake(cfg, Responder)
}

func newHandshake(cfg noise.Config, role Role) (*Handshake, error) {
	state, err := noise.NewHandshakeState(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake state: %w", err)
	}
	return &Handshake{
		role:  role,
		state: state,
		logger: logrus.WithFields(logrus.Fields{
			"package": "noiseendpoint",
			"role":    role.String(),
		}),
	}, nil
}

// Start writes the initiator's first message (-> e, es, s, ss).
func (h *Handshake) Start(payload []byte) ([]byte, error) {
	if h.role != Initiator {
		return nil, ErrWrongRole
	}
	if h.complete {
		return nil, ErrHandshakeComplete
	}
	message, _, _, err := h.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("initiator write failed: %w", err)
	}
	return message, nil
}

// Respond reads the initiator's message and writes the reply (<- e, ee, se).
// It returns the initiator's payload and the reply to send back.
func (h *Handshake) Respond(received, payload []byte) ([]byte, []byte, error) {
	if h.role != Responder {
		return nil, nil, ErrWrongRole
	}
	if h.complete {
		return nil, nil, ErrHandshakeComplete
	}

	peerPayload, _, _, err := h.state.ReadMessage(nil, received)
	if err != nil {
		h.logger.WithError(err).Warn("Rejected handshake initiation")
		return nil, nil, fmt.Errorf("responder read failed: %w", err)
	}

	reply, cs1, cs2, err := h.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("responder write failed: %w", err)
	}

	// cs1 encrypts initiator-to-responder traffic.
	h.recvCipher = cs1
	h.sendCipher = cs2
	h.complete = true
	h.logger.Debug("Handshake complete")
	return peerPayload, reply, nil
}

// Finish reads the responder's reply on the initiator side.
func (h *Handshake) Finish(reply []byte) ([]byte, error) {
	if h.role != Initiator {
		return nil, ErrWrongRole
	}
	if h.complete {
		return nil, ErrHandshakeComplete
	}

	payload, cs1, cs2, err := h.state.ReadMessage(nil, reply)
	if err != nil {
		h.logger.WithError(err).Warn("Rejected handshake reply")
		return nil, fmt.Errorf("initiator read response failed: %w", err)
	}

	h.sendCipher = cs1
	h.recvCipher = cs2
	h.complete = true
	h.logger.Debug("Handshake complete")
	return payload, nil
}

// IsComplete reports whether cipher states are available.
func (h *Handshake) IsComplete() bool {
	return h.complete
}

// CipherStates returns the send and receive cipher states.
func (h *Handshake) CipherStates() (send, recv *noise.CipherState, err error) {
	if !h.complete {
		return nil, nil, ErrHandshakeNotComplete
	}
	return h.sendCipher, h.recvCipher, nil
}

// RemoteStaticKey returns a copy of the peer's static public key.
func (h *Handshake) RemoteStaticKey() ([]byte, error) {
	if !h.complete {
		return nil, ErrHandshakeNotComplete
	}
	remote := h.state.PeerStatic()
	if len(remote) == 0 {
		return nil, fmt.Errorf("remote static key not available")
	}
	key := make([]byte, len(remote))
	copy(key, remote)
	return key, nil
}
