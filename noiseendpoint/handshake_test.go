package noiseendpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/paykit/sealedblob"
)

func completeHandshake(t *testing.T, payer, payee *StaticKey) (*Handshake, *Handshake) {
	t.Helper()
	e, err := payee.Endpoint("127.0.0.1", 9735)
	require.NoError(t, err)

	initiator, err := NewInitiator(payer, e)
	require.NoError(t, err)
	responder, err := NewResponder(payee)
	require.NoError(t, err)

	first, err := initiator.Start([]byte("hello"))
	require.NoError(t, err)
	assert.False(t, initiator.IsComplete())

	got, reply, err := responder.Respond(first, []byte("welcome"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
	assert.True(t, responder.IsComplete())

	got, err = initiator.Finish(reply)
	require.NoError(t, err)
	assert.Equal(t, []byte("welcome"), got)
	assert.True(t, initiator.IsComplete())
	return initiator, responder
}

func TestIKHandshakeAgainstPublishedEndpoint(t *testing.T) {
	payer := newStaticKey(t)
	payee := newStaticKey(t)
	initiator, responder := completeHandshake(t, payer, payee)

	remote, err := responder.RemoteStaticKey()
	require.NoError(t, err)
	assert.Equal(t, payer.Public, remote)

	remote, err = initiator.RemoteStaticKey()
	require.NoError(t, err)
	assert.Equal(t, payee.Public, remote)

	iSend, iRecv, err := initiator.CipherStates()
	require.NoError(t, err)
	rSend, rRecv, err := responder.CipherStates()
	require.NoError(t, err)

	ct, err := iSend.Encrypt(nil, nil, []byte("invoice"))
	require.NoError(t, err)
	pt, err := rRecv.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("invoice"), pt)

	ct, err = rSend.Encrypt(nil, nil, []byte("paid"))
	require.NoError(t, err)
	pt, err = iRecv.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("paid"), pt)
}

func TestHandshakeFailsAgainstWrongStaticKey(t *testing.T) {
	payer := newStaticKey(t)
	payee := newStaticKey(t)
	impostor := newStaticKey(t)

	e, err := payee.Endpoint("127.0.0.1", 9735)
	require.NoError(t, err)
	initiator, err := NewInitiator(payer, e)
	require.NoError(t, err)
	responder, err := NewResponder(impostor)
	require.NoError(t, err)

	first, err := initiator.Start(nil)
	require.NoError(t, err)
	_, _, err = responder.Respond(first, nil)
	assert.Error(t, err)
	assert.False(t, responder.IsComplete())
}

func TestHandshakeStateErrors(t *testing.T) {
	payer := newStaticKey(t)
	payee := newStaticKey(t)

	responder, err := NewResponder(payee)
	require.NoError(t, err)
	_, err = responder.Start(nil)
	assert.ErrorIs(t, err, ErrWrongRole)
	_, err = responder.Finish(nil)
	assert.ErrorIs(t, err, ErrWrongRole)
	_, _, err = responder.CipherStates()
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)
	_, err = responder.RemoteStaticKey()
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)

	initiator, _ := completeHandshake(t, payer, payee)
	_, err = initiator.Start(nil)
	assert.ErrorIs(t, err, ErrHandshakeComplete)
	_, _, err = initiator.Respond(nil, nil)
	assert.ErrorIs(t, err, ErrWrongRole)
}

func TestInitiatorConfigValidation(t *testing.T) {
	payer := newStaticKey(t)

	_, err := InitiatorConfig(payer, Endpoint{Host: "127.0.0.1", Port: 1, PublicKey: "00", Version: 1})
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	_, err = InitiatorConfig(&StaticKey{}, Endpoint{})
	assert.Error(t, err)

	_, err = ResponderConfig(nil)
	assert.Error(t, err)
}

func TestStaticKeyOpensSealedBlobs(t *testing.T) {
	payee := newStaticKey(t)
	var c sealedblob.X25519Cipher

	envelope, err := c.Encrypt([]byte("request"), payee.Public, "paykit:v0:handoff:/pub/paykit.app/v0/handoff/r1:r1")
	require.NoError(t, err)
	pt, err := c.Decrypt(envelope, payee.Private, "paykit:v0:handoff:/pub/paykit.app/v0/handoff/r1:r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("request"), pt)
}
