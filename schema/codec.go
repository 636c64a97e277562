// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"github.com/vmihailenco/msgpack"
)

// Marshal encodes the transaction with the canonical wire codec, used
// both for hashing payloads and for store blobs.
func (t *Transaction) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(t)
	if err != nil {
		return nil, schemaErrorWrap(ErrValidation, err, "marshal transaction")
	}
	return b, nil
}

// UnmarshalTransaction decodes a canonical transaction blob.
func UnmarshalTransaction(b []byte) (*Transaction, error) {
	var t Transaction
	if err := msgpack.Unmarshal(b, &t); err != nil {
		return nil, schemaErrorWrap(ErrValidation, err, "unmarshal transaction")
	}
	return &t, nil
}

// DeepCopy round-trips the transaction through the codec, yielding an
// independent copy safe to mutate for hashing.
func (t *Transaction) DeepCopy() (*Transaction, error) {
	b, err := t.Marshal()
	if err != nil {
		return nil, err
	}
	return UnmarshalTransaction(b)
}

// signablePayload clears everything a signer cannot know yet: all
// proofs on inputs and outputs, the resolved parent outputs attached
// to inputs for accounting, cached metadata, and the PoW proof.
func (t *Transaction) signablePayload() (*Transaction, error) {
	c, err := t.DeepCopy()
	if err != nil {
		return nil, err
	}
	for _, in := range c.Inputs {
		in.Proofs = nil
		in.Output = nil
	}
	for _, o := range c.Outputs {
		o.CounterPartyProofs = nil
	}
	if c.Options != nil {
		c.Options.Contract = nil
		c.Options.PowProof = nil
	}
	c.StructMetadata = nil
	return c, nil
}

// signedPayload clears only what accrues after signing: counterparty
// and confirmation proofs, the resolved parent outputs, cached
// metadata, and the PoW proof. Input proofs remain so the hash binds
// the signatures.
func (t *Transaction) signedPayload() (*Transaction, error) {
	c, err := t.DeepCopy()
	if err != nil {
		return nil, err
	}
	for _, in := range c.Inputs {
		in.Output = nil
	}
	for _, o := range c.Outputs {
		o.CounterPartyProofs = nil
	}
	if c.Options != nil {
		c.Options.Contract = nil
		c.Options.PowProof = nil
	}
	c.StructMetadata = nil
	return c, nil
}

// SignableHash digests the transaction with all proofs stripped. Two
// transactions differing only in signatures share a signable hash.
func (t *Transaction) SignableHash() (Hash, error) {
	p, err := t.signablePayload()
	if err != nil {
		return Hash{}, err
	}
	b, err := p.Marshal()
	if err != nil {
		return Hash{}, err
	}
	h := DigestHash(b)
	h.Type = HashTypeTransaction
	return h, nil
}

// SignedHash digests the transaction including input proofs, the
// identity the ledger stores transactions under.
func (t *Transaction) SignedHash() (Hash, error) {
	p, err := t.signedPayload()
	if err != nil {
		return Hash{}, err
	}
	b, err := p.Marshal()
	if err != nil {
		return Hash{}, err
	}
	h := DigestHash(b)
	h.Type = HashTypeTransaction
	return h, nil
}

// HashOr returns the signed hash, or a zero hash when the transaction
// cannot be encoded. Callers on validated transactions never see the
// zero case.
func (t *Transaction) HashOr() Hash {
	h, err := t.SignedHash()
	if err != nil {
		return Hash{Type: HashTypeTransaction}
	}
	return h
}

// HashHex returns the hex form of the signed hash.
func (t *Transaction) HashHex() string {
	return t.HashOr().Hex()
}
