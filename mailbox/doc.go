// Package mailbox composes an addressing strategy, a sealed-blob cipher and a
// storage backend into the write/read flow Paykit clients run against a
// homeserver.
//
// A sender files an object in its own storage at a strategy-derived path and
// seals it to the recipient with the matching AAD. The recipient polls the
// sender's listing path, fetches each object and opens it with its secret
// key:
//
//	mb := mailbox.New(addressing.SymmetricContext{}, sealedblob.X25519Cipher{}, backend)
//	id := mailbox.NewObjectID()
//	path, err := mb.Send(ctx, mailbox.KindRequest, sender, recipient, recipientPub, id, payload)
//	...
//	ids, err := mb.Pending(ctx, mailbox.KindRequest, sender, recipient)
//	plaintext, err := mb.Open(ctx, mailbox.KindRequest, sender, recipient, id, recipientSecret)
//
// With the v2 strategy the owner is part of the AAD, so an envelope copied to
// another owner's storage or another path fails to open.
package mailbox
