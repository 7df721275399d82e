package noiseendpoint

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/flynn/noise"

	"github.com/opd-ai/paykit/addressing"
)

// RecordVersion is the endpoint record format version.
const RecordVersion = 1

// KeySize is the size of Noise static keys.
const KeySize = 32

var (
	// ErrInvalidEndpoint indicates a malformed endpoint record.
	ErrInvalidEndpoint = errors.New("invalid noise endpoint")

	// ErrUnsupportedVersion indicates a record newer than this package understands.
	ErrUnsupportedVersion = errors.New("unsupported endpoint record version")
)

// Endpoint is the record stored at addressing.NoisePath().
type Endpoint struct {
	Host      string `json:"host"`
	Port      uint16 `json:"port"`
	PublicKey string `json:"public_key"`
	Version   int    `json:"version"`
}

// StaticKey is a local Noise static key pair.
type StaticKey struct {
	noise.DHKey
}

// GenerateStaticKey creates a new Curve25519 static key.
func GenerateStaticKey() (*StaticKey, error) {
	kp, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate static key: %w", err)
	}
	return &StaticKey{DHKey: kp}, nil
}

// PublicHex returns the public half as lowercase hex.
func (k *StaticKey) PublicHex() string {
	return hex.EncodeToString(k.Public)
}

// Endpoint returns a record advertising k at host:port.
func (k *StaticKey) Endpoint(host string, port uint16) (Endpoint, error) {
	e := Endpoint{
		Host:      host,
		Port:      port,
		PublicKey: k.PublicHex(),
		Version:   RecordVersion,
	}
	if err := e.Validate(); err != nil {
		return Endpoint{}, err
	}
	return e, nil
}

// Wipe zeroes the private half.
func (k *StaticKey) Wipe() {
	for i := range k.Private {
		k.Private[i] = 0
	}
}

// Path returns where the record is published.
func (e Endpoint) Path() string {
	return addressing.NoisePath()
}

// Address returns host:port suitable for net.Dial.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// StaticKeyBytes decodes the advertised static public key.
func (e Endpoint) StaticKeyBytes() ([]byte, error) {
	if len(e.PublicKey) != 2*KeySize || strings.ToLower(e.PublicKey) != e.PublicKey {
		return nil, fmt.Errorf("%w: public key must be %d lowercase hex characters", ErrInvalidEndpoint, 2*KeySize)
	}
	key, err := hex.DecodeString(e.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not hex", ErrInvalidEndpoint)
	}
	return key, nil
}

// Validate checks every field of the record.
func (e Endpoint) Validate() error {
	if e.Version < 1 {
		return fmt.Errorf("%w: version %d", ErrInvalidEndpoint, e.Version)
	}
	if e.Version > RecordVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, e.Version)
	}
	if e.Host == "" || strings.ContainsAny(e.Host, " \t\r\n/") {
		return fmt.Errorf("%w: host is empty or malformed", ErrInvalidEndpoint)
	}
	if e.Port == 0 {
		return fmt.Errorf("%w: port is required", ErrInvalidEndpoint)
	}
	_, err := e.StaticKeyBytes()
	return err
}

// Encode validates e and serializes it as JSON.
func Encode(e Endpoint) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Decode parses and validates a published record.
func Decode(data []byte) (Endpoint, error) {
	var e Endpoint
	if err := json.Unmarshal(data, &e); err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if err := e.Validate(); err != nil {
		return Endpoint{}, err
	}
	return e, nil
}
