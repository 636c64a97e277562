// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashType distinguishes what kind of object a hash identifies.
type HashType int32

const (
	HashTypeTransaction HashType = iota
	HashTypeUtxoID
	HashTypeObject
)

// Hash is a sha3-256 content hash.
type Hash struct {
	Bytes []byte   `msgpack:"bytes"`
	Type  HashType `msgpack:"type"`
}

// DigestHash hashes raw bytes into a content hash.
func DigestHash(data []byte) Hash {
	sum := sha3.Sum256(data)
	return Hash{Bytes: sum[:]}
}

// Hex returns the lowercase hex encoding of the hash bytes.
func (h Hash) Hex() string {
	return hex.EncodeToString(h.Bytes)
}

// Equal reports byte equality ignoring the hash type tag.
func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h.Bytes, other.Bytes)
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return len(h.Bytes) == 0
}

// XorDistance returns the XOR metric between two hashes collapsed to a
// uint64 over the leading eight bytes, used by partition range checks.
func XorDistance(a, b Hash) uint64 {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		var ab, bb byte
		if i < len(a.Bytes) {
			ab = a.Bytes[i]
		}
		if i < len(b.Bytes) {
			bb = b.Bytes[i]
		}
		buf[i] = ab ^ bb
	}
	return binary.BigEndian.Uint64(buf[:])
}

// PublicKey is a serialized compressed public key.
type PublicKey struct {
	Bytes []byte `msgpack:"bytes"`
}

// Validate checks the key has a plausible compressed-point encoding.
func (p *PublicKey) Validate() error {
	if p == nil || len(p.Bytes) == 0 {
		return schemaError(ErrMissingField, "missing public key bytes")
	}
	if len(p.Bytes) != 33 && len(p.Bytes) != 32 {
		return schemaError(ErrValidation, "invalid public key length").
			WithDetail("key", hex.EncodeToString(p.Bytes))
	}
	return nil
}

// Hex returns the hex encoding of the key bytes.
func (p *PublicKey) Hex() string {
	return hex.EncodeToString(p.Bytes)
}

// Equal reports byte equality of two keys.
func (p *PublicKey) Equal(other *PublicKey) bool {
	if p == nil || other == nil {
		return p == other
	}
	return bytes.Equal(p.Bytes, other.Bytes)
}

// Address returns the content-derived address of the key.
func (p *PublicKey) Address() (Address, error) {
	if err := p.Validate(); err != nil {
		return Address{}, err
	}
	h := DigestHash(p.Bytes)
	return Address{Value: h.Hex(), Currency: Redgold}, nil
}

// Proof is a signature over a transaction's signable hash together with
// the public key that produced it.
type Proof struct {
	PublicKey *PublicKey `msgpack:"public_key"`
	Signature []byte     `msgpack:"signature"`
}

// Address is a rendered destination, tagged with the currency of the
// chain it belongs to.  External marks addresses that live on a foreign
// chain rather than the Redgold ledger.
type Address struct {
	Value    string   `msgpack:"value"`
	Currency Currency `msgpack:"currency"`
	External bool     `msgpack:"external,omitempty"`
}

// Render returns the string form of the address.
func (a Address) Render() string {
	return a.Value
}

// Equal compares addresses by value and currency.
func (a Address) Equal(other Address) bool {
	return a.Value == other.Value && a.Currency == other.Currency
}

// MarkExternal returns a copy flagged as external.
func (a Address) MarkExternal() Address {
	a.External = true
	return a
}

// ScriptHashAddress derives an address from contract code by content
// hash, used for contract deploy outputs.
func ScriptHashAddress(code []byte) Address {
	return Address{Value: DigestHash(code).Hex(), Currency: Redgold}
}

// AddressDescriptor describes the script controlling an address, used
// to attach spend metadata to inputs whose UTXOs are descriptor
// controlled (e.g. multiparty custody outputs).
type AddressDescriptor struct {
	Script string `msgpack:"script"`
}

// ToAddress derives the descriptor's controlled address.
func (d AddressDescriptor) ToAddress() Address {
	return ScriptHashAddress([]byte(d.Script))
}

// UtxoId globally identifies a spendable output by the hash of the
// transaction that created it and the output's index.
type UtxoId struct {
	TransactionHash Hash  `msgpack:"transaction_hash"`
	OutputIndex     int64 `msgpack:"output_index"`
}

// NewUtxoId builds a UtxoId from its parts.
func NewUtxoId(h Hash, index int64) UtxoId {
	return UtxoId{TransactionHash: h, OutputIndex: index}
}

// Vec returns the canonical byte form: hash bytes followed by the
// little-endian output index.
func (u UtxoId) Vec() []byte {
	merged := make([]byte, 0, len(u.TransactionHash.Bytes)+8)
	merged = append(merged, u.TransactionHash.Bytes...)
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], uint64(u.OutputIndex))
	return append(merged, idx[:]...)
}

// AsHash returns the content hash of the id, used for XOR-distance
// addressing.
func (u UtxoId) AsHash() Hash {
	h := DigestHash(u.Vec())
	h.Type = HashTypeUtxoID
	return h
}

// Hex returns the hex encoding of the canonical byte form.
func (u UtxoId) Hex() string {
	return hex.EncodeToString(u.Vec())
}

// Equal reports whether two ids reference the same output.
func (u UtxoId) Equal(other UtxoId) bool {
	return u.OutputIndex == other.OutputIndex &&
		u.TransactionHash.Equal(other.TransactionHash)
}
