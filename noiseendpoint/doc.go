// Package noiseendpoint manages the Noise endpoint record a Paykit user
// publishes at the fixed noise path, and the IK handshake used to reach it.
//
// The record advertises where the user's live endpoint listens and which
// static Curve25519 key authenticates it:
//
//	{"host":"203.0.113.7","port":9735,"public_key":"<64 hex chars>","version":1}
//
// A payer who fetched the record already knows the responder's static key, so
// the connection uses the Noise IK pattern (Noise_IK_25519_ChaChaPoly_SHA256).
// [NewInitiator] builds the initiator side from a fetched [Endpoint];
// [NewResponder] builds the listening side from the local [StaticKey].
//
// The static key is an X25519 key pair and doubles as the recipient key for
// sealed blobs (see package sealedblob).
package noiseendpoint
