// Package suitx implements the destination chain's intent-signing scheme:
// canonical digest computation over raw transaction bytes and assembly of the
// serialized signature envelope submitted alongside them.
package suitx

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// SchemeFlagSecp256k1 is the signature scheme flag for secp256k1 envelopes.
const SchemeFlagSecp256k1 byte = 0x01

// intentPrefix is the intent message prefix for transaction data:
// scope=TransactionData, version=V0, app=Sui. The chain prepends the same
// three bytes before hashing, so any divergence here invalidates signatures.
var intentPrefix = [3]byte{0x00, 0x00, 0x00}

// IntentDigest computes the canonical signing digest for raw transaction
// bytes: blake2b-256 over the intent prefix followed by the bytes. This must
// be byte-exact with what the chain independently recomputes.
func IntentDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(intentPrefix)+len(txBytes))
	msg = append(msg, intentPrefix[:]...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}

// SigningHash returns the message hash handed to the threshold signer:
// sha256 over the intent digest.
func SigningHash(digest [32]byte) [32]byte {
	return sha256.Sum256(digest[:])
}

// EncodeEnvelope assembles and transport-encodes the serialized signature:
// base64(flag || signature || public_key).
func EncodeEnvelope(signature, publicKey []byte) string {
	envelope := make([]byte, 0, 1+len(signature)+len(publicKey))
	envelope = append(envelope, SchemeFlagSecp256k1)
	envelope = append(envelope, signature...)
	envelope = append(envelope, publicKey...)
	return base64.StdEncoding.EncodeToString(envelope)
}

// DecodeEnvelope splits a transport-encoded envelope back into its signature
// and public key. The secp256k1 layout is fixed: 1 flag byte, 64 signature
// bytes, 33 compressed public key bytes.
func DecodeEnvelope(encoded string) (signature, publicKey []byte, err error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if len(raw) != 1+64+33 {
		return nil, nil, fmt.Errorf("unexpected envelope length %d", len(raw))
	}
	if raw[0] != SchemeFlagSecp256k1 {
		return nil, nil, fmt.Errorf("unexpected scheme flag 0x%02x", raw[0])
	}
	return raw[1:65], raw[65:], nil
}

// VerifySignature checks a 64-byte secp256k1 signature over the signing hash
// against the bridge public key, before any submission is paid for.
func VerifySignature(publicKey []byte, signingHash [32]byte, signature []byte) error {
	if len(signature) != 64 {
		return fmt.Errorf("unexpected signature length %d", len(signature))
	}
	if !ethcrypto.VerifySignature(publicKey, signingHash[:], signature) {
		return fmt.Errorf("signature does not verify against bridge public key")
	}
	return nil
}
