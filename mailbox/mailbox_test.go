package mailbox

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/paykit/addressing"
	"github.com/opd-ai/paykit/identity"
	"github.com/opd-ai/paykit/sealedblob"
)

const (
	alice = "ybndrfg8ejkmcpqxot1uwisza345h769ybndrfg8ejkmcpqxot1u"
	bob   = "8pinxxgqs41n4aididenw5apqp1urfmzdztr8jt4abrkdn435ewo"
)

var mallory = strings.Repeat("y", identity.IdentifierLength)

type fixture struct {
	backend *MemoryBackend
	mailbox *Mailbox
	bobKey  *sealedblob.KeyPair
}

func newFixture(t *testing.T, s addressing.Strategy) *fixture {
	t.Helper()
	kp, err := sealedblob.GenerateKeyPair()
	require.NoError(t, err)
	backend := NewMemoryBackend()
	return &fixture{
		backend: backend,
		mailbox: New(s, sealedblob.X25519Cipher{}, backend),
		bobKey:  kp,
	}
}

func TestSendAndOpenBothVersions(t *testing.T) {
	ctx := context.Background()
	for _, s := range []addressing.Strategy{addressing.LegacyScope{}, addressing.SymmetricContext{}} {
		t.Run(s.Version().String(), func(t *testing.T) {
			f := newFixture(t, s)
			for _, kind := range []Kind{KindRequest, KindSubscriptionProposal} {
				id := NewObjectID()
				path, err := f.mailbox.Send(ctx, kind, "pk:"+strings.ToUpper(alice), bob, f.bobKey.Public[:], id, []byte("payload-"+kind.String()))
				require.NoError(t, err)
				assert.True(t, strings.HasSuffix(path, "/"+id))

				got, err := f.mailbox.Open(ctx, kind, alice, bob, id, f.bobKey.Secret[:])
				require.NoError(t, err)
				assert.Equal(t, "payload-"+kind.String(), string(got))
			}
		})
	}
}

func TestSendUsesStrategyPaths(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, addressing.SymmetricContext{})
	path, err := f.mailbox.Send(ctx, KindRequest, alice, bob, f.bobKey.Public[:], "r1", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/pub/paykit.app/v0/requests/23c3b49123e8d47047fd34afad2eefd074fe5ab6e53b7aec022dfc66a29bc904/r1", path)

	f = newFixture(t, addressing.LegacyScope{})
	path, err = f.mailbox.Send(ctx, KindSubscriptionProposal, alice, bob, f.bobKey.Public[:], "p1", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/pub/paykit.app/v0/subscriptions/proposals/04dc3323da61313c6f5404cf7921af2432ef867afe6cc4c32553858b8ac07f12/p1", path)
}

func TestPendingListsSenderObjects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, addressing.SymmetricContext{})

	ids, err := f.mailbox.Pending(ctx, KindRequest, alice, bob)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []string{"b", "a", "c"} {
		_, err := f.mailbox.Send(ctx, KindRequest, alice, bob, f.bobKey.Public[:], id, []byte(id))
		require.NoError(t, err)
	}
	_, err = f.mailbox.Send(ctx, KindSubscriptionProposal, alice, bob, f.bobKey.Public[:], "p", []byte("p"))
	require.NoError(t, err)

	ids, err = f.mailbox.Pending(ctx, KindRequest, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	ids, err = f.mailbox.Pending(ctx, KindRequest, bob, alice)
	require.NoError(t, err)
	assert.Empty(t, ids, "objects live in the sender's storage")
}

func TestOwnerBindingRejectsCopiedEnvelope(t *testing.T) {
	ctx := context.Background()
	alicePath, err := addressing.RequestPathFor(addressing.SymmetricContext{}, alice, bob, "r1")
	require.NoError(t, err)

	t.Run("v2 copy to another owner fails", func(t *testing.T) {
		f := newFixture(t, addressing.SymmetricContext{})
		_, err := f.mailbox.Send(ctx, KindRequest, alice, bob, f.bobKey.Public[:], "r1", []byte("pay 1000"))
		require.NoError(t, err)
		copyObject(t, f.backend, alice, mallory, alicePath, alicePath)

		_, err = f.mailbox.OpenAt(ctx, KindRequest, mallory, alicePath, "r1", f.bobKey.Secret[:])
		assert.ErrorIs(t, err, sealedblob.ErrAuthenticationFailed)
	})

	t.Run("v1 copy to another owner still opens", func(t *testing.T) {
		f := newFixture(t, addressing.LegacyScope{})
		v1Path, err := f.mailbox.Send(ctx, KindRequest, alice, bob, f.bobKey.Public[:], "r1", []byte("pay 1000"))
		require.NoError(t, err)
		copyObject(t, f.backend, alice, mallory, v1Path, v1Path)

		got, err := f.mailbox.OpenAt(ctx, KindRequest, mallory, v1Path, "r1", f.bobKey.Secret[:])
		require.NoError(t, err)
		assert.Equal(t, "pay 1000", string(got))
	})

	t.Run("copy to another path fails", func(t *testing.T) {
		f := newFixture(t, addressing.SymmetricContext{})
		_, err := f.mailbox.Send(ctx, KindRequest, alice, bob, f.bobKey.Public[:], "r1", []byte("pay 1000"))
		require.NoError(t, err)
		otherPath, err := addressing.RequestPathFor(addressing.SymmetricContext{}, alice, bob, "r2")
		require.NoError(t, err)
		copyObject(t, f.backend, alice, alice, alicePath, otherPath)

		_, err = f.mailbox.Open(ctx, KindRequest, alice, bob, "r2", f.bobKey.Secret[:])
		assert.ErrorIs(t, err, sealedblob.ErrAuthenticationFailed)
	})

	t.Run("request opened as proposal fails", func(t *testing.T) {
		f := newFixture(t, addressing.SymmetricContext{})
		_, err := f.mailbox.Send(ctx, KindRequest, alice, bob, f.bobKey.Public[:], "r1", []byte("pay 1000"))
		require.NoError(t, err)

		_, err = f.mailbox.OpenAt(ctx, KindSubscriptionProposal, alice, alicePath, "r1", f.bobKey.Secret[:])
		assert.ErrorIs(t, err, sealedblob.ErrAuthenticationFailed)
	})
}

func TestOpenMissingObject(t *testing.T) {
	f := newFixture(t, addressing.SymmetricContext{})
	_, err := f.mailbox.Open(context.Background(), KindRequest, alice, bob, uuid.NewString(), f.bobKey.Secret[:])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, addressing.SymmetricContext{})

	_, err := f.mailbox.Send(ctx, KindRequest, "not-a-key", bob, f.bobKey.Public[:], "r1", []byte("x"))
	assert.ErrorIs(t, err, identity.ErrInvalidIdentifier)

	_, err = f.mailbox.Send(ctx, KindRequest, alice, bob, f.bobKey.Public[:], "bad/id", []byte("x"))
	assert.Error(t, err)

	_, err = f.mailbox.Send(ctx, Kind(7), alice, bob, f.bobKey.Public[:], "r1", []byte("x"))
	assert.ErrorIs(t, err, addressing.ErrInvalidPurpose)

	_, err = f.mailbox.Pending(ctx, KindRequest, alice, "nope")
	assert.ErrorIs(t, err, identity.ErrInvalidIdentifier)
}

func TestOpenAtRejectsUnknownKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, addressing.SymmetricContext{})

	path, err := f.mailbox.Send(ctx, KindRequest, alice, bob, f.bobKey.Public[:], "r1", []byte("x"))
	require.NoError(t, err)

	_, err = f.mailbox.OpenAt(ctx, Kind(7), alice, path, "r1", f.bobKey.Secret[:])
	assert.ErrorIs(t, err, addressing.ErrInvalidPurpose)

	_, err = f.mailbox.OpenAt(ctx, Kind(-1), alice, path, "r1", f.bobKey.Secret[:])
	assert.ErrorIs(t, err, addressing.ErrInvalidPurpose)
}

func TestNewObjectIDIsValidPathSegment(t *testing.T) {
	id := NewObjectID()
	_, err := addressing.HandoffPath(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewObjectID())
}

func copyObject(t *testing.T, b *MemoryBackend, fromOwner, toOwner, fromPath, toPath string) {
	t.Helper()
	ctx := context.Background()
	data, err := b.Get(ctx, identity.MustNormalize(fromOwner), fromPath)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, identity.MustNormalize(toOwner), toPath, data))
}
