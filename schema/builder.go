// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TransactionBuilder accumulates outputs and candidate UTXOs and
// assembles a balanced, fee-paying, proof-of-work-stamped transaction.
// A builder is single use: Build consumes it.
type TransactionBuilder struct {
	Transaction *Transaction

	utxos       []*UtxoEntry
	usedUtxos   []*UtxoEntry
	network     *Network
	feeAddrs    []Address
	descriptors []AddressDescriptor

	allowBypassFee   bool
	zeroFeeRequested bool
	built            bool
}

// NewTransactionBuilder returns a builder targeting the given network,
// stamped with the current time and a random salt.
func NewTransactionBuilder(network Network) *TransactionBuilder {
	n := network
	salt := rand.Int63()
	return &TransactionBuilder{
		Transaction: &Transaction{
			Options: &TransactionOptions{
				NetworkType: &n,
				Salt:        &salt,
			},
			StructMetadata: &StructMetadata{Time: time.Now().UnixMilli()},
		},
		network: &n,
	}
}

// WithFeeAddresses sets the recognized fee destinations used by the
// automatic fee deduction.
func (b *TransactionBuilder) WithFeeAddresses(addrs []Address) *TransactionBuilder {
	b.feeAddrs = addrs
	return b
}

// WithAllowBypassFee disables the insufficient-fee failure, used by
// test and genesis flows.
func (b *TransactionBuilder) WithAllowBypassFee() *TransactionBuilder {
	b.allowBypassFee = true
	return b
}

// WithZeroFeeRequested skips the automatic fee deduction entirely,
// relying on the relay-side zero-fee exemption.
func (b *TransactionBuilder) WithZeroFeeRequested() *TransactionBuilder {
	b.zeroFeeRequested = true
	return b
}

// WithTime overrides the creation timestamp.
func (b *TransactionBuilder) WithTime(millis int64) *TransactionBuilder {
	if b.Transaction.StructMetadata == nil {
		b.Transaction.StructMetadata = &StructMetadata{}
	}
	b.Transaction.StructMetadata.Time = millis
	return b
}

// WithNoSalt clears the salt, yielding deterministic hashes for
// identical payloads.
func (b *TransactionBuilder) WithNoSalt() *TransactionBuilder {
	if b.Transaction.Options != nil {
		b.Transaction.Options.Salt = nil
	}
	return b
}

// WithIsTest flags the transaction test-only.
func (b *TransactionBuilder) WithIsTest() *TransactionBuilder {
	b.options().IsTest = true
	return b
}

// WithType sets the transaction type tag.
func (b *TransactionBuilder) WithType(t TransactionType) *TransactionBuilder {
	b.options().TransactionType = t
	return b
}

// WithMessage attaches a free-text message.
func (b *TransactionBuilder) WithMessage(msg string) *TransactionBuilder {
	opts := b.options()
	if opts.Data == nil {
		opts.Data = &TransactionData{}
	}
	opts.Data.Message = msg
	return b
}

// WithOptionsHeight records a ledger height in the transaction data.
func (b *TransactionBuilder) WithOptionsHeight(height int64) *TransactionBuilder {
	opts := b.options()
	if opts.Data == nil {
		opts.Data = &TransactionData{}
	}
	if opts.Data.StandardData == nil {
		opts.Data.StandardData = &StandardData{}
	}
	h := height
	opts.Data.StandardData.Height = &h
	return b
}

func (b *TransactionBuilder) options() *TransactionOptions {
	if b.Transaction.Options == nil {
		b.Transaction.Options = &TransactionOptions{}
	}
	return b.Transaction.Options
}

// WithAddressDescriptor registers a descriptor whose controlled
// address may appear among candidate UTXOs; matching inputs carry the
// descriptor for later script evaluation.
func (b *TransactionBuilder) WithAddressDescriptor(d AddressDescriptor) *TransactionBuilder {
	b.descriptors = append(b.descriptors, d)
	return b
}

// WithUtxo adds a candidate UTXO. The entry must carry a resolved
// output with an address and a currency amount.
func (b *TransactionBuilder) WithUtxo(u *UtxoEntry) (*TransactionBuilder, error) {
	if u.Output == nil {
		return nil, schemaError(ErrMissingField, "missing output on utxo entry")
	}
	if u.Output.Address == nil {
		return nil, schemaError(ErrMissingField, "missing address on utxo entry")
	}
	if u.Output.OptAmount() == nil {
		return nil, schemaError(ErrMissingField, "missing amount on utxo entry")
	}
	b.utxos = append(b.utxos, u)
	return b, nil
}

// WithMaybeCurrencyUtxo adds the entry only when it carries an amount,
// silently skipping data-only outputs.
func (b *TransactionBuilder) WithMaybeCurrencyUtxo(u *UtxoEntry) (*TransactionBuilder, error) {
	if u.Output == nil || u.Output.OptAmount() == nil {
		return b, nil
	}
	return b.WithUtxo(u)
}

// WithUtxos adds every currency-carrying entry among the given ones.
func (b *TransactionBuilder) WithUtxos(entries []*UtxoEntry) (*TransactionBuilder, error) {
	for _, u := range entries {
		if _, err := b.WithMaybeCurrencyUtxo(u); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// WithUnsignedInput appends the entry directly as an input, bypassing
// greedy selection.
func (b *TransactionBuilder) WithUnsignedInput(u *UtxoEntry) (*TransactionBuilder, error) {
	if u.Output == nil || u.Output.Data == nil {
		return nil, schemaError(ErrMissingField, "missing output data on utxo entry")
	}
	b.usedUtxos = append(b.usedUtxos, u)
	b.Transaction.Inputs = append(b.Transaction.Inputs, u.ToInput())
	return b, nil
}

func (b *TransactionBuilder) withUnsignedInputDescriptor(u *UtxoEntry, d AddressDescriptor) {
	in := u.ToInput()
	desc := d
	in.AddressDescriptor = &desc
	b.usedUtxos = append(b.usedUtxos, u)
	b.Transaction.Inputs = append(b.Transaction.Inputs, in)
}

// WithDirectInput appends a bare input referencing the UTXO id without
// a resolved output, used for request-consuming flows like stake
// withdrawal.
func (b *TransactionBuilder) WithDirectInput(id UtxoId) *TransactionBuilder {
	uid := id
	b.Transaction.Inputs = append(b.Transaction.Inputs, &Input{UtxoID: &uid})
	return b
}

// WithGenesisInput appends an input that consumes nothing, anchoring
// the genesis transaction to its address.
func (b *TransactionBuilder) WithGenesisInput(addr Address) *TransactionBuilder {
	a := addr
	b.Transaction.Inputs = append(b.Transaction.Inputs, &Input{
		InputType: InputTypeGenesis,
		Output:    &Output{Address: &a},
	})
	return b
}

// WithNodeMetadataUtxo consumes a node metadata UTXO directly, the
// identity-update flow.
func (b *TransactionBuilder) WithNodeMetadataUtxo(u *UtxoEntry) (*TransactionBuilder, error) {
	if u.Output == nil || u.Output.Address == nil {
		return nil, schemaError(ErrMissingField, "missing address on utxo entry")
	}
	if !u.Output.IsNodeMetadata() {
		return nil, schemaError(ErrValidation, "not a node metadata output")
	}
	return b.WithUnsignedInput(u)
}

// WithOutput appends a plain payment output.
func (b *TransactionBuilder) WithOutput(destination Address, amount *Amount) *TransactionBuilder {
	b.Transaction.Outputs = append(b.Transaction.Outputs, NewOutput(destination, amount.Units))
	return b
}

// WithFee appends a fee-typed output.
func (b *TransactionBuilder) WithFee(destination Address, amount *Amount) *TransactionBuilder {
	b.WithOutput(destination, amount)
	b.lastOutput().OutputType = OutputTypeFee
	return b
}

// WithDefaultFee appends the minimum fee paid to the first registered
// fee address.
func (b *TransactionBuilder) WithDefaultFee() (*TransactionBuilder, error) {
	if len(b.feeAddrs) == 0 {
		return nil, schemaError(ErrMissingField, "missing fee address")
	}
	fee := MinFee()
	return b.WithFee(b.feeAddrs[0], &fee), nil
}

// WithObservation appends an observation output and tags the
// transaction as an observation.
func (b *TransactionBuilder) WithObservation(o *Observation, height int64, addr Address) *TransactionBuilder {
	b.WithOptionsHeight(height)
	a := addr
	b.Transaction.Outputs = append(b.Transaction.Outputs, &Output{
		Address: &a,
		Data:    &StandardData{Observation: o},
	})
	return b.WithType(TransactionTypeObservation)
}

// WithOutputPeerData appends a peer metadata output.
func (b *TransactionBuilder) WithOutputPeerData(destination Address, pd *PeerMetadata, height int64) *TransactionBuilder {
	b.WithOptionsHeight(height)
	h := height
	a := destination
	b.Transaction.Outputs = append(b.Transaction.Outputs, &Output{
		Address: &a,
		Data:    &StandardData{PeerData: pd, Height: &h},
	})
	return b
}

// WithOutputNodeMetadata appends a node metadata output.
func (b *TransactionBuilder) WithOutputNodeMetadata(destination Address, nm *NodeMetadata, height int64) *TransactionBuilder {
	h := height
	a := destination
	b.Transaction.Outputs = append(b.Transaction.Outputs, &Output{
		Address: &a,
		Data:    &StandardData{NodeMetadata: nm, Height: &h},
	})
	return b
}

// WithContractRequestOutput appends an output invoking a deployed
// contract with an opaque serialized request.
func (b *TransactionBuilder) WithContractRequestOutput(destination Address, request []byte) *TransactionBuilder {
	a := destination
	b.Transaction.Outputs = append(b.Transaction.Outputs, &Output{
		Address:    &a,
		OutputType: OutputTypeRequestCall,
		Contract:   &OutputContract{PayUpdateDescendents: true},
		Data:       &StandardData{Request: request},
	})
	return b
}

// WithContractDeployOutput appends a deploy output carrying the
// contract code at its script hash address, optionally with a
// predicate input gating future updates.
func (b *TransactionBuilder) WithContractDeployOutput(code []byte, amount *Amount, usePredicateInput bool) *TransactionBuilder {
	destination := ScriptHashAddress(code)
	b.Transaction.Outputs = append(b.Transaction.Outputs, &Output{
		Address:    &destination,
		OutputType: OutputTypeDeploy,
		Contract: &OutputContract{
			CodeExecutionContract: &CodeExecutionContract{Code: code},
		},
		Data: AmountData(amount.Units),
	})
	if usePredicateInput {
		b.Transaction.Inputs = append(b.Transaction.Inputs, PredicateInput(destination))
	}
	return b
}

func (b *TransactionBuilder) lastOutput() *Output {
	return b.Transaction.Outputs[len(b.Transaction.Outputs)-1]
}

func (b *TransactionBuilder) lastOutputData() (*StandardData, error) {
	if len(b.Transaction.Outputs) == 0 {
		return nil, schemaError(ErrMissingField, "missing output")
	}
	o := b.lastOutput()
	if o.Data == nil {
		o.Data = &StandardData{}
	}
	return o.Data, nil
}

func (b *TransactionBuilder) lastOutputRequest() (*StandardRequest, error) {
	d, err := b.lastOutputData()
	if err != nil {
		return nil, err
	}
	if d.StandardRequest == nil {
		d.StandardRequest = &StandardRequest{}
	}
	return d.StandardRequest, nil
}

// WithLastOutputType retags the most recent output.
func (b *TransactionBuilder) WithLastOutputType(t OutputType) *TransactionBuilder {
	if len(b.Transaction.Outputs) > 0 {
		b.lastOutput().OutputType = t
	}
	return b
}

// WithLastOutputContractType binds the most recent output to a
// standard contract.
func (b *TransactionBuilder) WithLastOutputContractType(t StandardContractType) *TransactionBuilder {
	if len(b.Transaction.Outputs) > 0 {
		b.lastOutput().Contract = &OutputContract{StandardContractType: t}
	}
	return b
}

// WithLastOutputSwapDestination attaches a swap request toward the
// external destination to the most recent output.
func (b *TransactionBuilder) WithLastOutputSwapDestination(destination Address) (*TransactionBuilder, error) {
	req, err := b.lastOutputRequest()
	if err != nil {
		return nil, err
	}
	addr := destination.MarkExternal()
	req.SwapRequest = &SwapRequest{Destination: &addr}
	return b, nil
}

// WithSwap appends a swap output: value paid to the party address with
// a request naming the external destination.
func (b *TransactionBuilder) WithSwap(destination Address, amount *Amount, partyAddress Address) (*TransactionBuilder, error) {
	b.WithOutput(partyAddress, amount)
	if _, err := b.WithLastOutputSwapDestination(destination); err != nil {
		return nil, err
	}
	return b.WithLastOutputContractType(ContractTypeSwap), nil
}

// WithLastOutputSwapFulfillment attaches a swap receipt referencing
// the external settlement transaction to the most recent output.
func (b *TransactionBuilder) WithLastOutputSwapFulfillment(txid ExternalTransactionID) (*TransactionBuilder, error) {
	d, err := b.lastOutputData()
	if err != nil {
		return nil, err
	}
	id := txid
	d.StandardResponse = &StandardResponse{
		SwapFulfillment: &SwapFulfillment{ExternalTransactionID: &id},
	}
	return b, nil
}

// WithLastOutputStakeWithdrawalFulfillment attaches a stake withdrawal
// receipt referencing the originating request UTXO to the most recent
// output.
func (b *TransactionBuilder) WithLastOutputStakeWithdrawalFulfillment(requestUtxo UtxoId) (*TransactionBuilder, error) {
	d, err := b.lastOutputData()
	if err != nil {
		return nil, err
	}
	id := requestUtxo
	d.StandardResponse = &StandardResponse{
		StakeWithdrawalFulfillment: &StakeWithdrawalFulfillment{StakeWithdrawalRequest: &id},
	}
	return b, nil
}

func usdRange(lower, upper *float64) []LiquidityRange {
	if lower == nil && upper == nil {
		return nil
	}
	var lr LiquidityRange
	if lower != nil {
		if a, err := FromUsd(*lower); err == nil {
			lr.MinInclusive = &a
		}
	}
	if upper != nil {
		if a, err := FromUsd(*upper); err == nil {
			lr.MaxExclusive = &a
		}
	}
	return []LiquidityRange{lr}
}

// WithInternalStake appends a stake deposit funded by the RDG paid to
// the party address, controlled by the stake control address,
// optionally bounded to a USD liquidity range.
func (b *TransactionBuilder) WithInternalStake(
	lower, upper *float64,
	stakeControlAddress, partyAddress Address,
	partySendAmount *Amount,
) *TransactionBuilder {
	b.WithOutput(partyAddress, partySendAmount)
	b.WithLastOutputContractType(ContractTypeStake)
	ctrl := stakeControlAddress
	b.Transaction.Outputs = append(b.Transaction.Outputs, &Output{
		Address: &ctrl,
		Data: &StandardData{
			StandardRequest: &StandardRequest{
				StakeRequest: &StakeRequest{
					Deposit: &StakeDeposit{LiquidityRanges: usdRange(lower, upper)},
				},
			},
		},
	})
	return b
}

// WithExternalStake appends a stake deposit backed by value held on an
// external chain, with a pool fee paid in RDG.
func (b *TransactionBuilder) WithExternalStake(
	lower, upper *float64,
	stakeControlAddress, externalAddress Address,
	externalAmount *Amount,
	poolAddress Address, poolFee *Amount,
) *TransactionBuilder {
	b.WithOutput(poolAddress, poolFee)
	b.WithLastOutputContractType(ContractTypeStake)
	ext := externalAddress.MarkExternal()
	ctrl := stakeControlAddress
	b.Transaction.Outputs = append(b.Transaction.Outputs, &Output{
		Address: &ctrl,
		Data: &StandardData{
			StandardRequest: &StandardRequest{
				StakeRequest: &StakeRequest{
					Deposit: &StakeDeposit{
						LiquidityRanges: usdRange(lower, upper),
						Deposit: &DepositRequest{
							Address: &ext,
							Amount:  externalAmount,
						},
					},
				},
			},
		},
	})
	return b
}

// WithStakeWithdrawal consumes the original stake UTXO and appends a
// withdrawal request toward the external destination, paying the
// party fee.
func (b *TransactionBuilder) WithStakeWithdrawal(
	destination, partyAddress Address,
	partyFee *Amount,
	originalUtxo UtxoId,
) *TransactionBuilder {
	b.WithDirectInput(originalUtxo)
	dest := destination.MarkExternal()
	pa := partyAddress
	b.Transaction.Outputs = append(b.Transaction.Outputs, &Output{
		Address: &pa,
		Data: &StandardData{
			Amount: partyFee,
			StandardRequest: &StandardRequest{
				StakeRequest: &StakeRequest{
					Withdrawal: &StakeWithdrawal{Destination: &dest},
				},
			},
		},
	})
	return b
}

// Balance returns total resolved input value minus total output value.
func (b *TransactionBuilder) Balance() int64 {
	return b.Transaction.TotalInputAmount() - b.Transaction.TotalOutputAmount()
}

func (b *TransactionBuilder) withRemainder() error {
	addr, err := b.Transaction.FirstInputAddress()
	if err != nil {
		return err
	}
	b.Transaction.Outputs = append(b.Transaction.Outputs, NewOutput(addr, b.Balance()))
	return nil
}

// Build finalizes the transaction: selects inputs from the candidate
// UTXO set smallest first, returns change to the first input address,
// deducts and pays the fee, stamps the proof of work, and validates
// the result. The builder is consumed; further calls fail.
func (b *TransactionBuilder) Build() (*Transaction, error) {
	if b.built {
		return nil, schemaError(ErrBuilderConsumed, "transaction builder already consumed")
	}
	b.built = true

	// Smallest first consolidates dust across transactions.
	sort.SliceStable(b.utxos, func(i, j int) bool {
		return b.utxos[i].AmountUnits() < b.utxos[j].AmountUnits()
	})

	descriptors := make(map[string]AddressDescriptor, len(b.descriptors))
	for _, d := range b.descriptors {
		descriptors[d.ToAddress().Render()] = d
	}

	for _, u := range b.utxos {
		if b.Balance() >= 0 {
			break
		}
		if u.Output == nil || u.Output.OptAmount() == nil {
			continue
		}
		if addr, err := u.Address(); err == nil {
			if d, ok := descriptors[addr.Render()]; ok {
				b.withUnsignedInputDescriptor(u, d)
				continue
			}
		}
		if _, err := b.WithUnsignedInput(u); err != nil {
			return nil, err
		}
	}

	if b.Balance() < 0 {
		return nil, schemaError(ErrInsufficientFunds, "insufficient funds").
			WithDetail("balance", strconv.FormatInt(b.Balance(), 10))
	}
	if b.Balance() > 0 {
		if err := b.withRemainder(); err != nil {
			return nil, err
		}
	}

	if !b.Transaction.ValidateFeeOnly(b.feeAddrs) && !b.zeroFeeRequested {
		if len(b.feeAddrs) > 0 {
			foundFee := false
			for i := len(b.Transaction.Outputs) - 1; i >= 0; i-- {
				a := b.Transaction.Outputs[i].OptAmount()
				if a == nil || a.Currency != Redgold || a.Units <= MinRdgSatsFee {
					continue
				}
				a.Units -= MinRdgSatsFee
				foundFee = true
				break
			}
			if foundFee {
				if _, err := b.WithDefaultFee(); err != nil {
					return nil, err
				}
			}
		}
		if !b.Transaction.ValidateFeeOnly(b.feeAddrs) && !b.allowBypassFee {
			rendered := make([]string, len(b.feeAddrs))
			for i, a := range b.feeAddrs {
				rendered[i] = a.Render()
			}
			return nil, schemaError(ErrInsufficientFee, "insufficient fee").
				WithDetail("fee_addresses", strings.Join(rendered, ","))
		}
	}

	if err := b.Transaction.ApplyPoW(); err != nil {
		return nil, err
	}

	if err := b.Transaction.ValidateSchema(b.network, false); err != nil {
		return nil, err
	}
	log.Debugf("Built transaction %v with %d inputs and %d outputs",
		b.Transaction.HashHex(), len(b.Transaction.Inputs),
		len(b.Transaction.Outputs))
	return b.Transaction, nil
}
