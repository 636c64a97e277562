// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

// UtxoEntry is a spendable output together with its identity and the
// creation time of its parent transaction.
type UtxoEntry struct {
	UtxoID UtxoId  `msgpack:"utxo_id"`
	Output *Output `msgpack:"output"`
	Time   int64   `msgpack:"time"`
}

// UtxoEntriesFrom projects every output of the transaction into a
// spendable entry keyed by the signed transaction hash.
func UtxoEntriesFrom(t *Transaction) ([]*UtxoEntry, error) {
	h, err := t.SignedHash()
	if err != nil {
		return nil, err
	}
	tm, err := t.Time()
	if err != nil {
		return nil, err
	}
	entries := make([]*UtxoEntry, 0, len(t.Outputs))
	for i, o := range t.Outputs {
		entries = append(entries, o.UtxoEntryAt(h, int64(i), tm))
	}
	return entries, nil
}

// Address returns the entry's destination address.
func (u *UtxoEntry) Address() (Address, error) {
	if u.Output == nil || u.Output.Address == nil {
		return Address{}, schemaError(ErrMissingField, "missing address on utxo entry")
	}
	return *u.Output.Address, nil
}

// Amount returns the entry's currency amount.
func (u *UtxoEntry) Amount() (*Amount, error) {
	if u.Output == nil {
		return nil, schemaError(ErrMissingField, "missing output on utxo entry")
	}
	a := u.Output.OptAmount()
	if a == nil {
		return nil, schemaError(ErrMissingField, "missing amount on utxo entry")
	}
	return a, nil
}

// AmountUnits returns the entry's integer amount, zero when the output
// carries no amount.
func (u *UtxoEntry) AmountUnits() int64 {
	if u.Output == nil {
		return 0
	}
	if a := u.Output.OptAmount(); a != nil {
		return a.Units
	}
	return 0
}

// ToInput converts the entry into a spendable input, carrying the
// resolved output for amount accounting. Proofs are attached at
// signing time.
func (u *UtxoEntry) ToInput() *Input {
	id := u.UtxoID
	return &Input{
		UtxoID: &id,
		Output: u.Output,
	}
}
