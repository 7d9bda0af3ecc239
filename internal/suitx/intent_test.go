package suitx

import (
	"bytes"
	"encoding/base64"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestIntentDigestIsStable(t *testing.T) {
	txBytes := []byte("transaction-bytes")

	first := IntentDigest(txBytes)
	second := IntentDigest(txBytes)
	if first != second {
		t.Fatal("digest must be deterministic")
	}

	other := IntentDigest([]byte("transaction-byteZ"))
	if first == other {
		t.Fatal("different transaction bytes must produce different digests")
	}
}

func TestIntentDigestCoversPrefix(t *testing.T) {
	// The digest is over prefix||bytes, so moving bytes across the prefix
	// boundary must change it.
	a := IntentDigest([]byte{0x01, 0x02})
	b := IntentDigest([]byte{0x00, 0x01, 0x02})
	if a == b {
		t.Fatal("digest must include the intent prefix")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	signature := bytes.Repeat([]byte{0xAB}, 64)
	publicKey := bytes.Repeat([]byte{0xCD}, 33)

	encoded := EncodeEnvelope(signature, publicKey)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("envelope is not valid base64: %v", err)
	}
	if len(raw) != 1+64+33 {
		t.Fatalf("envelope length = %d, want 98", len(raw))
	}
	if raw[0] != SchemeFlagSecp256k1 {
		t.Fatalf("scheme flag = 0x%02x, want 0x01", raw[0])
	}

	gotSig, gotKey, err := DecodeEnvelope(encoded)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if !bytes.Equal(gotSig, signature) {
		t.Fatal("signature did not survive the round trip")
	}
	if !bytes.Equal(gotKey, publicKey) {
		t.Fatal("public key did not survive the round trip")
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	if _, _, err := DecodeEnvelope("not-base64!!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}

	short := base64.StdEncoding.EncodeToString([]byte{SchemeFlagSecp256k1, 0x01, 0x02})
	if _, _, err := DecodeEnvelope(short); err == nil {
		t.Fatal("expected error for truncated envelope")
	}

	wrongFlag := make([]byte, 98)
	wrongFlag[0] = 0x00
	if _, _, err := DecodeEnvelope(base64.StdEncoding.EncodeToString(wrongFlag)); err == nil {
		t.Fatal("expected error for unknown scheme flag")
	}
}

func TestVerifySignature(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	publicKey := ethcrypto.CompressPubkey(&key.PublicKey)

	digest := IntentDigest([]byte("tx"))
	signingHash := SigningHash(digest)

	fullSig, err := ethcrypto.Sign(signingHash[:], key)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	signature := fullSig[:64] // drop the recovery byte

	if err := VerifySignature(publicKey, signingHash, signature); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	tampered := make([]byte, 64)
	copy(tampered, signature)
	tampered[0] ^= 0xFF
	if err := VerifySignature(publicKey, signingHash, tampered); err == nil {
		t.Fatal("tampered signature accepted")
	}

	if err := VerifySignature(publicKey, signingHash, fullSig); err == nil {
		t.Fatal("65-byte signature must be rejected")
	}

	otherHash := SigningHash(IntentDigest([]byte("other-tx")))
	if err := VerifySignature(publicKey, otherHash, signature); err == nil {
		t.Fatal("signature over a different hash accepted")
	}
}
