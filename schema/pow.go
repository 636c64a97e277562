// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"encoding/binary"
)

// PoWDifficulty is the number of leading zero bytes the merged digest
// of a transaction's proof of work must carry.
const PoWDifficulty = 1

// PoWProofType identifies the proof of work scheme.
type PoWProofType int32

const (
	PoWProofTypeSha3256Nonce PoWProofType = iota
)

// PoWProof is a nonce whose big-endian bytes, appended to a hash and
// redigested, yield a digest meeting the difficulty target.
type PoWProof struct {
	ProofType    PoWProofType `msgpack:"proof_type"`
	IndexCounter []byte       `msgpack:"index_counter"`
}

func checkDifficultyBytes(b []byte, leadingZeroBytes int) bool {
	if len(b) < leadingZeroBytes {
		return false
	}
	for _, v := range b[:leadingZeroBytes] {
		if v != 0 {
			return false
		}
	}
	return true
}

// NewPoWProof searches nonces from zero until the merged digest of the
// hash meets the difficulty target.
func NewPoWProof(h Hash, difficulty int) *PoWProof {
	proof := &PoWProof{ProofType: PoWProofTypeSha3256Nonce}
	var nonce int64
	for {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(nonce))
		proof.IndexCounter = buf[:]
		if proof.Verify(h, difficulty) {
			return proof
		}
		nonce++
	}
}

// MergedBytes concatenates the hash bytes with the nonce bytes.
func (p *PoWProof) MergedBytes(h Hash) []byte {
	merged := make([]byte, 0, len(h.Bytes)+len(p.IndexCounter))
	merged = append(merged, h.Bytes...)
	merged = append(merged, p.IndexCounter...)
	return merged
}

// MergedDigestHash digests the merged bytes.
func (p *PoWProof) MergedDigestHash(h Hash) Hash {
	return DigestHash(p.MergedBytes(h))
}

// Verify reports whether the merged digest meets the difficulty
// target.
func (p *PoWProof) Verify(h Hash, difficulty int) bool {
	if len(p.IndexCounter) == 0 {
		return false
	}
	return checkDifficultyBytes(p.MergedDigestHash(h).Bytes, difficulty)
}

// Nonce returns the integer form of the nonce.
func (p *PoWProof) Nonce() int64 {
	if len(p.IndexCounter) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(p.IndexCounter))
}

// ApplyPoW computes and attaches a proof of work over the signable
// hash at the standard difficulty.
func (t *Transaction) ApplyPoW() error {
	h, err := t.SignableHash()
	if err != nil {
		return err
	}
	if t.Options == nil {
		t.Options = &TransactionOptions{}
	}
	t.Options.PowProof = NewPoWProof(h, PoWDifficulty)
	return nil
}

// PoWValidate checks that the transaction carries a valid proof of
// work over its signable hash.
func (t *Transaction) PoWValidate() error {
	opts, err := t.OptionsOrErr()
	if err != nil {
		return err
	}
	if opts.PowProof == nil {
		return schemaError(ErrMissingField, "missing pow proof on transaction")
	}
	h, err := t.SignableHash()
	if err != nil {
		return err
	}
	if !opts.PowProof.Verify(h, PoWDifficulty) {
		return schemaError(ErrValidation, "pow proof does not meet difficulty").
			WithDetail("hash", h.Hex())
	}
	return nil
}
