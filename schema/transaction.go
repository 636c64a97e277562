// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"strings"
)

// MaxTransactionMessageSize bounds the optional free-text message
// attached to a transaction's options.
const MaxTransactionMessageSize = 40

// TransactionType tags the dominant business purpose of a transaction.
type TransactionType int32

const (
	TransactionTypeStandard TransactionType = iota
	TransactionTypeObservation
	TransactionTypeMetadata
)

// OutputType tags an output's role within a transaction.
type OutputType int32

const (
	OutputTypeUnknown OutputType = iota
	OutputTypeFee
	OutputTypeDeploy
	OutputTypeRequestCall
)

// StandardContractType identifies the built-in contract kinds an
// output may bind to.
type StandardContractType int32

const (
	ContractTypeNone StandardContractType = iota
	ContractTypeSwap
	ContractTypeStake
)

// InputType distinguishes ordinary UTXO-consuming inputs from genesis
// inputs that consume nothing.
type InputType int32

const (
	InputTypeStandard InputType = iota
	InputTypeGenesis
)

// ExternalTransactionID references a transaction on a foreign chain.
type ExternalTransactionID struct {
	Identifier string   `msgpack:"identifier"`
	Currency   Currency `msgpack:"currency"`
}

// SwapRequest asks the party to swap the attached amount toward an
// external destination.
type SwapRequest struct {
	Destination *Address `msgpack:"destination"`
}

// SwapFulfillment is the party's receipt for a completed swap,
// referencing the settlement transaction on the destination chain.
type SwapFulfillment struct {
	ExternalTransactionID *ExternalTransactionID `msgpack:"external_transaction_id"`
}

// StakeWithdrawalFulfillment receipts a completed stake withdrawal,
// referencing the UTXO of the withdrawal request it settles.
type StakeWithdrawalFulfillment struct {
	StakeWithdrawalRequest *UtxoId `msgpack:"stake_withdrawal_request"`
}

// LiquidityRange bounds the USD price band a stake deposit provides
// liquidity within.
type LiquidityRange struct {
	MinInclusive *Amount `msgpack:"min_inclusive"`
	MaxExclusive *Amount `msgpack:"max_exclusive"`
}

// DepositRequest names the external address and amount backing an
// external stake deposit.
type DepositRequest struct {
	Address *Address `msgpack:"address"`
	Amount  *Amount  `msgpack:"amount"`
}

// PortfolioFulfillmentParams marks a stake deposit as supplying a
// portfolio program rather than AMM liquidity.
type PortfolioFulfillmentParams struct {
	PortfolioID string `msgpack:"portfolio_id,omitempty"`
}

// StakeDeposit opens a staking position, optionally bounded to USD
// liquidity ranges, and optionally backed by an external deposit.
type StakeDeposit struct {
	LiquidityRanges            []LiquidityRange            `msgpack:"liquidity_ranges"`
	Deposit                    *DepositRequest             `msgpack:"deposit"`
	PortfolioFulfillmentParams *PortfolioFulfillmentParams `msgpack:"portfolio_fulfillment_params"`
}

// StakeWithdrawal closes a staking position toward a destination.
type StakeWithdrawal struct {
	Destination *Address `msgpack:"destination"`
}

// StakeRequest is either a deposit or a withdrawal.
type StakeRequest struct {
	Deposit    *StakeDeposit    `msgpack:"deposit"`
	Withdrawal *StakeWithdrawal `msgpack:"withdrawal"`
}

// PortfolioWeighting assigns a relative weight to a currency within a
// portfolio program.
type PortfolioWeighting struct {
	Currency Currency `msgpack:"currency"`
	Weight   float64  `msgpack:"weight"`
}

// PortfolioInfo describes a portfolio program's target allocation.
type PortfolioInfo struct {
	PortfolioID         string               `msgpack:"portfolio_id,omitempty"`
	PortfolioWeightings []PortfolioWeighting `msgpack:"portfolio_weightings"`
}

// FixedCurrencyAllocations normalizes the weightings to fractions
// summing to one.
func (p *PortfolioInfo) FixedCurrencyAllocations() map[Currency]float64 {
	var total float64
	for _, w := range p.PortfolioWeightings {
		total += w.Weight
	}
	out := make(map[Currency]float64, len(p.PortfolioWeightings))
	if total == 0 {
		return out
	}
	for _, w := range p.PortfolioWeightings {
		out[w.Currency] += w.Weight / total
	}
	return out
}

// PortfolioRequest asks the party to manage the staked value under a
// portfolio program rather than AMM liquidity.
type PortfolioRequest struct {
	PortfolioInfo *PortfolioInfo `msgpack:"portfolio_info"`
}

// StandardRequest is the union of request payload kinds.
type StandardRequest struct {
	SwapRequest      *SwapRequest      `msgpack:"swap_request"`
	StakeRequest     *StakeRequest     `msgpack:"stake_request"`
	PortfolioRequest *PortfolioRequest `msgpack:"portfolio_request"`
}

// StandardResponse is the union of fulfillment receipt kinds.
type StandardResponse struct {
	SwapFulfillment            *SwapFulfillment            `msgpack:"swap_fulfillment"`
	StakeWithdrawalFulfillment *StakeWithdrawalFulfillment `msgpack:"stake_withdrawal_fulfillment"`
}

// Observation is a node's attestation over observed transaction
// hashes, anchored to the UTXO of the node's previous observation.
type Observation struct {
	ParentID *UtxoId `msgpack:"parent_id"`
	Observed []Hash  `msgpack:"observed"`
}

// StandardData is the typed payload carried by an output: exactly one
// business meaning per output in practice, though the model does not
// enforce mutual exclusivity (the builder does).
type StandardData struct {
	Amount           *Amount           `msgpack:"amount"`
	PeerData         *PeerMetadata     `msgpack:"peer_data"`
	NodeMetadata     *NodeMetadata     `msgpack:"node_metadata"`
	Observation      *Observation      `msgpack:"observation"`
	StandardRequest  *StandardRequest  `msgpack:"standard_request"`
	StandardResponse *StandardResponse `msgpack:"standard_response"`
	Request          []byte            `msgpack:"request,omitempty"`
	Height           *int64            `msgpack:"height"`
}

// AmountData wraps a raw RDG amount as output payload data.
func AmountData(units int64) *StandardData {
	return &StandardData{Amount: &Amount{Units: units, Currency: Redgold}}
}

// CodeExecutionContract carries deployable contract code and its
// executor backend.
type CodeExecutionContract struct {
	Code     []byte `msgpack:"code"`
	Executor string `msgpack:"executor"`
}

// OutputContract binds an output to a standard or code-execution
// contract.
type OutputContract struct {
	StandardContractType  StandardContractType   `msgpack:"standard_contract_type"`
	CodeExecutionContract *CodeExecutionContract `msgpack:"code_execution_contract"`
	PayUpdateDescendents  bool                   `msgpack:"pay_update_descendents"`
}

// Output is a transaction output: a destination address plus a typed
// payload, optionally bound to a contract and counter-signed.
type Output struct {
	Address            *Address        `msgpack:"address"`
	Data               *StandardData   `msgpack:"data"`
	OutputType         OutputType      `msgpack:"output_type"`
	Contract           *OutputContract `msgpack:"contract"`
	CounterPartyProofs []*Proof        `msgpack:"counter_party_proofs"`
}

// NewOutput returns a plain RDG payment output.
func NewOutput(destination Address, units int64) *Output {
	addr := destination
	return &Output{Address: &addr, Data: AmountData(units)}
}

// OptAmount returns the output's currency amount, if it carries one.
func (o *Output) OptAmount() *Amount {
	if o.Data == nil {
		return nil
	}
	return o.Data.Amount
}

// contractType returns the output's standard contract type.
func (o *Output) contractType() StandardContractType {
	if o.Contract == nil {
		return ContractTypeNone
	}
	return o.Contract.StandardContractType
}

// IsSwap reports whether the output binds to the swap contract.
func (o *Output) IsSwap() bool {
	return o.contractType() == ContractTypeSwap
}

// IsStake reports whether the output binds to the stake contract.
func (o *Output) IsStake() bool {
	return o.contractType() == ContractTypeStake
}

// IsFee reports whether the output is typed as a fee.
func (o *Output) IsFee() bool {
	return o.OutputType == OutputTypeFee
}

// IsDeploy reports whether the output deploys contract code.
func (o *Output) IsDeploy() bool {
	return o.OutputType == OutputTypeDeploy
}

// IsMetadata reports whether the output carries peer or node metadata.
func (o *Output) IsMetadata() bool {
	return o.Data != nil && (o.Data.PeerData != nil || o.Data.NodeMetadata != nil)
}

// IsPeerData reports whether the output carries peer metadata.
func (o *Output) IsPeerData() bool {
	return o.Data != nil && o.Data.PeerData != nil
}

// IsNodeMetadata reports whether the output carries node metadata.
func (o *Output) IsNodeMetadata() bool {
	return o.Data != nil && o.Data.NodeMetadata != nil
}

// IsRequest reports whether the output carries a standard request.
func (o *Output) IsRequest() bool {
	return o.Request() != nil
}

// Request returns the output's standard request payload, if any.
func (o *Output) Request() *StandardRequest {
	if o.Data == nil {
		return nil
	}
	return o.Data.StandardRequest
}

// Response returns the output's standard response payload, if any.
func (o *Output) Response() *StandardResponse {
	if o.Data == nil {
		return nil
	}
	return o.Data.StandardResponse
}

// SwapRequestPayload returns the output's swap request, if any.
func (o *Output) SwapRequestPayload() *SwapRequest {
	if r := o.Request(); r != nil {
		return r.SwapRequest
	}
	return nil
}

// SwapFulfillmentPayload returns the output's swap fulfillment, if
// any.
func (o *Output) SwapFulfillmentPayload() *SwapFulfillment {
	if r := o.Response(); r != nil {
		return r.SwapFulfillment
	}
	return nil
}

// ObservationPayload returns the output's observation, if any.
func (o *Output) ObservationPayload() *Observation {
	if o.Data == nil {
		return nil
	}
	return o.Data.Observation
}

// UtxoEntryAt projects this output as a spendable entry of its parent
// transaction.
func (o *Output) UtxoEntryAt(txHash Hash, index int64, time int64) *UtxoEntry {
	return &UtxoEntry{
		UtxoID: NewUtxoId(txHash, index),
		Output: o,
		Time:   time,
	}
}

// FloatingUtxoId references an output that has not yet been pinned to
// a concrete transaction hash, used by predicate inputs.
type FloatingUtxoId struct {
	Address *Address `msgpack:"address"`
}

// Input consumes a UTXO (or a floating/predicate reference) and
// carries the proofs authorizing the spend.  Output holds the resolved
// parent output for amount accounting and is cleared before hashing.
type Input struct {
	UtxoID            *UtxoId            `msgpack:"utxo_id"`
	FloatingUtxoID    *FloatingUtxoId    `msgpack:"floating_utxo_id"`
	Proofs            []*Proof           `msgpack:"proofs"`
	AddressDescriptor *AddressDescriptor `msgpack:"address_descriptor"`
	Output            *Output            `msgpack:"output"`
	InputType         InputType          `msgpack:"input_type"`
}

// PredicateInput returns a floating input gated on the given address,
// used by contract deploys.
func PredicateInput(addr Address) *Input {
	a := addr
	return &Input{FloatingUtxoID: &FloatingUtxoId{Address: &a}}
}

// InputAddress returns the address of the input's resolved parent
// output.
func (in *Input) InputAddress() (Address, error) {
	if in.Output == nil || in.Output.Address == nil {
		return Address{}, schemaError(ErrMissingField, "missing resolved output on input")
	}
	return *in.Output.Address, nil
}

// TransactionData carries optional free-form transaction metadata.
type TransactionData struct {
	Message      string        `msgpack:"message,omitempty"`
	StandardData *StandardData `msgpack:"standard_data"`
}

// ContractOptions carries confirmation-stage proofs appended by
// consensus participants after signing.
type ContractOptions struct {
	ConfirmationProofs []*Proof `msgpack:"confirmation_proofs"`
}

// TransactionOptions carries non-output transaction attributes.
type TransactionOptions struct {
	Salt            *int64           `msgpack:"salt"`
	NetworkType     *Network         `msgpack:"network_type"`
	Data            *TransactionData `msgpack:"data"`
	Contract        *ContractOptions `msgpack:"contract"`
	PowProof        *PoWProof        `msgpack:"pow_proof"`
	TransactionType TransactionType  `msgpack:"transaction_type"`
	IsTest          bool             `msgpack:"is_test,omitempty"`
}

// StructMetadata caches derived transaction attributes: creation time
// and the signable hash computed at build time.
type StructMetadata struct {
	Time         int64 `msgpack:"time"`
	SignableHash *Hash `msgpack:"signable_hash"`
}

// Transaction is the immutable-once-hashed envelope of value transfer:
// inputs consuming UTXOs, typed outputs creating them, and options.
type Transaction struct {
	Inputs         []*Input            `msgpack:"inputs"`
	Outputs        []*Output           `msgpack:"outputs"`
	Options        *TransactionOptions `msgpack:"options"`
	StructMetadata *StructMetadata     `msgpack:"struct_metadata"`
}

// Time returns the transaction's creation time in unix millis.
func (t *Transaction) Time() (int64, error) {
	if t.StructMetadata == nil {
		return 0, schemaError(ErrMissingField, "missing struct metadata on transaction")
	}
	return t.StructMetadata.Time, nil
}

// OptionsOrErr returns the transaction options, failing when absent.
func (t *Transaction) OptionsOrErr() (*TransactionOptions, error) {
	if t.Options == nil {
		return nil, schemaError(ErrMissingField, "missing options on transaction")
	}
	return t.Options, nil
}

// NetworkType returns the network the transaction targets.
func (t *Transaction) NetworkType() (Network, error) {
	opts, err := t.OptionsOrErr()
	if err != nil {
		return 0, err
	}
	if opts.NetworkType == nil {
		return 0, schemaError(ErrInvalidNetwork, "missing network type on transaction")
	}
	return *opts.NetworkType, nil
}

// ValidateNetwork checks the transaction targets the given network.
func (t *Transaction) ValidateNetwork(network Network) error {
	n, err := t.NetworkType()
	if err != nil {
		return err
	}
	if n != network {
		return schemaError(ErrInvalidNetwork, "network type mismatch").
			WithDetail("expected", network.String()).
			WithDetail("actual", n.String())
	}
	return nil
}

// IsTest reports whether the transaction is flagged as test-only.
func (t *Transaction) IsTest() bool {
	return t.Options != nil && t.Options.IsTest
}

// InputOf returns the input consuming the given UTXO id, if present.
func (t *Transaction) InputOf(id UtxoId) *Input {
	for _, in := range t.Inputs {
		if in.UtxoID != nil && in.UtxoID.Equal(id) {
			return in
		}
	}
	return nil
}

// Classification predicates: each is "at least one output matches".
// Mutual exclusivity of business types is enforced by the builder, not
// here.

// IsSwap reports whether any output binds to the swap contract.
func (t *Transaction) IsSwap() bool {
	for _, o := range t.Outputs {
		if o.IsSwap() {
			return true
		}
	}
	return false
}

// IsStake reports whether any output binds to the stake contract.
func (t *Transaction) IsStake() bool {
	for _, o := range t.Outputs {
		if o.IsStake() {
			return true
		}
	}
	return false
}

// IsMetadata reports whether any output carries peer or node metadata.
func (t *Transaction) IsMetadata() bool {
	for _, o := range t.Outputs {
		if o.IsMetadata() {
			return true
		}
	}
	return false
}

// IsRequest reports whether any output carries a standard request.
func (t *Transaction) IsRequest() bool {
	for _, o := range t.Outputs {
		if o.IsRequest() {
			return true
		}
	}
	return false
}

// IsDeploy reports whether any output deploys contract code.
func (t *Transaction) IsDeploy() bool {
	for _, o := range t.Outputs {
		if o.IsDeploy() {
			return true
		}
	}
	return false
}

// IsSwapFulfillment reports whether any output receipts a swap.
func (t *Transaction) IsSwapFulfillment() bool {
	for _, o := range t.Outputs {
		if o.SwapFulfillmentPayload() != nil {
			return true
		}
	}
	return false
}

// IsMetadataOrObservation reports whether every output is metadata or
// an observation, the only transactions allowed to omit inputs.
func (t *Transaction) IsMetadataOrObservation() bool {
	for _, o := range t.Outputs {
		if !o.IsMetadata() && o.ObservationPayload() == nil {
			return false
		}
	}
	return len(t.Outputs) > 0
}

// SwapRequestPayload returns the first swap request among outputs.
func (t *Transaction) SwapRequestPayload() *SwapRequest {
	for _, o := range t.Outputs {
		if r := o.SwapRequestPayload(); r != nil {
			return r
		}
	}
	return nil
}

// SwapDestination returns the external destination of the first swap
// request, if any.
func (t *Transaction) SwapDestination() *Address {
	if r := t.SwapRequestPayload(); r != nil {
		return r.Destination
	}
	return nil
}

// StakeRequestPayload returns the first stake request among outputs.
func (t *Transaction) StakeRequestPayload() *StakeRequest {
	for _, o := range t.Outputs {
		if r := o.Request(); r != nil && r.StakeRequest != nil {
			return r.StakeRequest
		}
	}
	return nil
}

// StakeDepositRequest returns the first stake deposit, if any.
func (t *Transaction) StakeDepositRequest() *StakeDeposit {
	if r := t.StakeRequestPayload(); r != nil {
		return r.Deposit
	}
	return nil
}

// StakeWithdrawalRequest returns the first stake withdrawal, if any.
func (t *Transaction) StakeWithdrawalRequest() *StakeWithdrawal {
	if r := t.StakeRequestPayload(); r != nil {
		return r.Withdrawal
	}
	return nil
}

// StakeDepositDestination returns the external deposit address of the
// first stake deposit, if any.
func (t *Transaction) StakeDepositDestination() *Address {
	if d := t.StakeDepositRequest(); d != nil && d.Deposit != nil {
		return d.Deposit.Address
	}
	return nil
}

// StakeWithdrawalDestination returns the destination of the first
// stake withdrawal, if any.
func (t *Transaction) StakeWithdrawalDestination() *Address {
	if w := t.StakeWithdrawalRequest(); w != nil {
		return w.Destination
	}
	return nil
}

// ExternalDestinationCurrency returns the currency of the external
// destination named by a swap or stake request, if any.
func (t *Transaction) ExternalDestinationCurrency() (Currency, bool) {
	dest := t.SwapDestination()
	if dest == nil {
		dest = t.StakeDepositDestination()
	}
	if dest == nil {
		dest = t.StakeWithdrawalDestination()
	}
	if dest == nil {
		return Redgold, false
	}
	return dest.Currency, true
}

// PortfolioRequestPayload returns the first portfolio request among
// outputs, if any.
func (t *Transaction) PortfolioRequestPayload() *PortfolioRequest {
	for _, o := range t.Outputs {
		if r := o.Request(); r != nil && r.PortfolioRequest != nil {
			return r.PortfolioRequest
		}
	}
	return nil
}

// HasPortfolioRequest reports whether the transaction carries a
// portfolio request.
func (t *Transaction) HasPortfolioRequest() bool {
	return t.PortfolioRequestPayload() != nil
}

// OutputExternalTxids iterates the external transaction ids referenced
// by swap fulfillment receipts among outputs.
func (t *Transaction) OutputExternalTxids() []*ExternalTransactionID {
	var ids []*ExternalTransactionID
	for _, o := range t.Outputs {
		if f := o.SwapFulfillmentPayload(); f != nil && f.ExternalTransactionID != nil {
			ids = append(ids, f.ExternalTransactionID)
		}
	}
	return ids
}

// FirstOutputExternalTxid returns the first fulfillment receipt's
// external id, if any.
func (t *Transaction) FirstOutputExternalTxid() *ExternalTransactionID {
	ids := t.OutputExternalTxids()
	if len(ids) == 0 {
		return nil
	}
	return ids[0]
}

// StakeWithdrawalFulfillments returns all stake withdrawal receipts
// among outputs.
func (t *Transaction) StakeWithdrawalFulfillments() []*StakeWithdrawalFulfillment {
	var res []*StakeWithdrawalFulfillment
	for _, o := range t.Outputs {
		if r := o.Response(); r != nil && r.StakeWithdrawalFulfillment != nil {
			res = append(res, r.StakeWithdrawalFulfillment)
		}
	}
	return res
}

// Amount accounting views.

// TotalOutputAmount sums the RDG-scale integer amounts of all outputs.
func (t *Transaction) TotalOutputAmount() int64 {
	var total int64
	for _, o := range t.Outputs {
		if a := o.OptAmount(); a != nil {
			total += a.Units
		}
	}
	return total
}

// TotalInputAmount sums the amounts of the resolved parent outputs of
// all inputs.
func (t *Transaction) TotalInputAmount() int64 {
	var total int64
	for _, in := range t.Inputs {
		if in.Output != nil {
			if a := in.Output.OptAmount(); a != nil {
				total += a.Units
			}
		}
	}
	return total
}

// InputAddressSet returns the set of addresses whose UTXOs this
// transaction consumes, keyed by rendered address.
func (t *Transaction) InputAddressSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, in := range t.Inputs {
		if addr, err := in.InputAddress(); err == nil {
			set[addr.Render()] = struct{}{}
		}
	}
	return set
}

// FirstInputAddress returns the address of the first input with a
// resolved parent output.
func (t *Transaction) FirstInputAddress() (Address, error) {
	for _, in := range t.Inputs {
		if addr, err := in.InputAddress(); err == nil {
			return addr, nil
		}
	}
	return Address{}, schemaError(ErrMissingField, "missing input address on transaction")
}

// FirstInputProofPublicKey returns the public key of the first proof
// on the first input, if present.
func (t *Transaction) FirstInputProofPublicKey() *PublicKey {
	if len(t.Inputs) == 0 || len(t.Inputs[0].Proofs) == 0 {
		return nil
	}
	return t.Inputs[0].Proofs[0].PublicKey
}

// InputAddressDescriptorOrProofAddresses returns, per input, the
// descriptor-derived address when a descriptor is attached, else the
// address derived from the first proof's public key.
func (t *Transaction) InputAddressDescriptorOrProofAddresses() []Address {
	var res []Address
	for _, in := range t.Inputs {
		if in.AddressDescriptor != nil {
			res = append(res, in.AddressDescriptor.ToAddress())
			continue
		}
		if len(in.Proofs) > 0 && in.Proofs[0].PublicKey != nil {
			if a, err := in.Proofs[0].PublicKey.Address(); err == nil {
				res = append(res, a)
			}
		}
	}
	return res
}

// RemainderAmount sums output amounts returned to input addresses.
func (t *Transaction) RemainderAmount() int64 {
	inputs := t.InputAddressSet()
	var total int64
	for _, o := range t.Outputs {
		if o.Address == nil {
			continue
		}
		if _, ok := inputs[o.Address.Render()]; !ok {
			continue
		}
		if a := o.OptAmount(); a != nil {
			total += a.Units
		}
	}
	return total
}

// NonRemainderAmount sums output amounts paid to non-input addresses.
func (t *Transaction) NonRemainderAmount() int64 {
	inputs := t.InputAddressSet()
	var total int64
	for _, o := range t.Outputs {
		if o.Address == nil {
			continue
		}
		if _, ok := inputs[o.Address.Render()]; ok {
			continue
		}
		if a := o.OptAmount(); a != nil {
			total += a.Units
		}
	}
	return total
}

// FeeAmount sums the amounts of fee-typed outputs.
func (t *Transaction) FeeAmount() int64 {
	var total int64
	for _, o := range t.Outputs {
		if !o.IsFee() {
			continue
		}
		if a := o.OptAmount(); a != nil {
			total += a.Units
		}
	}
	return total
}

// OutputRdgAmountOf sums RDG output amounts paid to the given address.
func (t *Transaction) OutputRdgAmountOf(addr Address) int64 {
	var total int64
	for _, o := range t.Outputs {
		if o.Address == nil || !o.Address.Equal(addr) {
			continue
		}
		if a := o.OptAmount(); a != nil && a.Currency == Redgold {
			total += a.Units
		}
	}
	return total
}

// OutputSwapAmountOf sums swap-typed output amounts paid to the given
// address.
func (t *Transaction) OutputSwapAmountOf(addr Address) int64 {
	var total int64
	for _, o := range t.Outputs {
		if !o.IsSwap() || o.Address == nil || !o.Address.Equal(addr) {
			continue
		}
		if a := o.OptAmount(); a != nil {
			total += a.Units
		}
	}
	return total
}

// HasSwapTo reports whether the transaction pays a swap output to the
// given address.
func (t *Transaction) HasSwapTo(addr Address) bool {
	return t.OutputSwapAmountOf(addr) > 0
}

// FirstOutputNonInputOrFee returns the first output that is neither a
// fee nor a payment back to an input address: the intentional payment.
func (t *Transaction) FirstOutputNonInputOrFee() *Output {
	inputs := t.InputAddressSet()
	for _, o := range t.Outputs {
		if o.IsFee() {
			continue
		}
		if o.Address != nil {
			if _, ok := inputs[o.Address.Render()]; ok {
				continue
			}
		}
		return o
	}
	return nil
}

// FirstOutputAmount returns the fractional amount of the intentional
// payment output, if any.
func (t *Transaction) FirstOutputAmount() (float64, bool) {
	o := t.FirstOutputNonInputOrFee()
	if o == nil {
		return 0, false
	}
	a := o.OptAmount()
	if a == nil {
		return 0, false
	}
	return a.ToFractional(), true
}

// Message returns the optional free-text message on the transaction.
func (t *Transaction) Message() string {
	if t.Options == nil || t.Options.Data == nil {
		return ""
	}
	return t.Options.Data.Message
}

// Observation linkage.

// ObservationOutputIndex returns the index of the single observation
// output.
func (t *Transaction) ObservationOutputIndex() (int64, error) {
	for i, o := range t.Outputs {
		if o.ObservationPayload() != nil {
			return int64(i), nil
		}
	}
	return 0, schemaError(ErrMissingField, "missing observation output")
}

// ObservationPayload returns the single observation carried by the
// transaction.
func (t *Transaction) ObservationPayload() (*Observation, error) {
	for _, o := range t.Outputs {
		if obs := o.ObservationPayload(); obs != nil {
			return obs, nil
		}
	}
	return nil, schemaError(ErrMissingField, "missing observation")
}

// ObservationProof resolves the proof that signed the parent of the
// observation: the input consuming the referenced parent UTXO must
// carry at least one proof.
func (t *Transaction) ObservationProof() (*Proof, error) {
	obs, err := t.ObservationPayload()
	if err != nil {
		return nil, err
	}
	if obs.ParentID == nil {
		return nil, schemaError(ErrMissingField, "missing parent id on observation")
	}
	in := t.InputOf(*obs.ParentID)
	if in == nil {
		return nil, schemaError(ErrMissingField, "missing input for observation parent")
	}
	if len(in.Proofs) == 0 {
		return nil, schemaError(ErrMissingField, "missing input proof for observation")
	}
	return in.Proofs[0], nil
}

// ObservationPublicKey returns the public key of the observation
// proof.
func (t *Transaction) ObservationPublicKey() (*PublicKey, error) {
	p, err := t.ObservationProof()
	if err != nil {
		return nil, err
	}
	if p.PublicKey == nil {
		return nil, schemaError(ErrMissingField, "missing public key on observation proof")
	}
	return p.PublicKey, nil
}

// Peer/node metadata extraction: exactly one such output is expected
// on an identity transaction; anything else is a structured error
// naming the missing field.

// PeerData returns the single peer metadata payload.
func (t *Transaction) PeerData() (*PeerMetadata, error) {
	var res []*PeerMetadata
	for _, o := range t.Outputs {
		if o.Data != nil && o.Data.PeerData != nil {
			res = append(res, o.Data.PeerData)
		}
	}
	if len(res) != 1 {
		return nil, schemaError(ErrMissingField, "missing peer data in transaction")
	}
	return res[0], nil
}

// NodeMetadataPayload returns the single node metadata payload.
func (t *Transaction) NodeMetadataPayload() (*NodeMetadata, error) {
	var res []*NodeMetadata
	for _, o := range t.Outputs {
		if o.Data != nil && o.Data.NodeMetadata != nil {
			res = append(res, o.Data.NodeMetadata)
		}
	}
	if len(res) != 1 {
		return nil, schemaError(ErrMissingField, "missing node metadata in transaction")
	}
	return res[0], nil
}

// AddProofPerInput appends the proof to every input, used after a
// single key signs the whole transaction.
func (t *Transaction) AddProofPerInput(proof *Proof) {
	for _, in := range t.Inputs {
		in.Proofs = append(in.Proofs, proof)
	}
}

// CombineMultisigProofs merges proofs from another partially signed
// copy of the same transaction, skipping proofs already present by
// public key.
func (t *Transaction) CombineMultisigProofs(other *Transaction) (*Transaction, error) {
	updated, err := t.DeepCopy()
	if err != nil {
		return nil, err
	}
	if len(other.Inputs) != len(updated.Inputs) {
		return nil, schemaError(ErrValidation, "mismatched input count in multisig combine")
	}
	for i, in := range updated.Inputs {
		for _, p := range other.Inputs[i].Proofs {
			dup := false
			for _, existing := range in.Proofs {
				if existing.PublicKey.Equal(p.PublicKey) {
					dup = true
					break
				}
			}
			if !dup {
				in.Proofs = append(in.Proofs, p)
			}
		}
	}
	return updated, nil
}

// InputUtxoIds returns the concrete UTXO ids consumed by inputs.
func (t *Transaction) InputUtxoIds() []UtxoId {
	var ids []UtxoId
	for _, in := range t.Inputs {
		if in.UtxoID != nil {
			ids = append(ids, *in.UtxoID)
		}
	}
	return ids
}

// UtxoIdAt returns the UTXO id of the output at index.
func (t *Transaction) UtxoIdAt(index int) (UtxoId, error) {
	if index < 0 || index >= len(t.Outputs) {
		return UtxoId{}, schemaError(ErrMissingField, "missing output at index")
	}
	return NewUtxoId(t.HashOr(), int64(index)), nil
}

// StakeRequests returns each stake request output paired with its
// UTXO id.
func (t *Transaction) StakeRequests() []StakeRequestRef {
	var res []StakeRequestRef
	h := t.HashOr()
	for i, o := range t.Outputs {
		if r := o.Request(); r != nil && r.StakeRequest != nil {
			res = append(res, StakeRequestRef{
				UtxoID:  NewUtxoId(h, int64(i)),
				Request: r.StakeRequest,
			})
		}
	}
	return res
}

// StakeRequestRef pairs a stake request with the UTXO id of the
// output carrying it.
type StakeRequestRef struct {
	UtxoID  UtxoId
	Request *StakeRequest
}

// AddressMatchesRendered compares a rendered address string
// case-insensitively, since external chain addresses vary in casing.
func AddressMatchesRendered(a, b string) bool {
	return strings.EqualFold(a, b)
}
