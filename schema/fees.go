// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

// ValidateFeeOnly reports whether the transaction pays at least the
// minimum RDG fee to one of the given fee addresses.
func (t *Transaction) ValidateFeeOnly(feeAddresses []Address) bool {
	var paid int64
	for _, o := range t.Outputs {
		if o.Address == nil {
			continue
		}
		a := o.OptAmount()
		if a == nil || a.Currency != Redgold {
			continue
		}
		for _, fa := range feeAddresses {
			if o.Address.Equal(fa) {
				paid += a.Units
				break
			}
		}
	}
	return paid >= MinRdgSatsFee
}

// ValidateFee reports whether the transaction either pays the minimum
// fee or qualifies for the zero-fee exemption: a short output list
// moving at least one whole RDG.
func (t *Transaction) ValidateFee(feeAddresses []Address) bool {
	smallNumOutputs := len(t.Outputs) < 5
	total := Amount{Units: t.TotalOutputAmount(), Currency: Redgold}
	zeroFeeExempt := total.ToFractional() >= 1.0 && smallNumOutputs
	return zeroFeeExempt || t.ValidateFeeOnly(feeAddresses)
}

// ValidateResolvedFee extends ValidateFee with a rate limit for
// zero-fee transactions: the exemption applies only when enough time
// has passed since the newest consumed parent, scaled down for small
// amounts.
func (t *Transaction) ValidateResolvedFee(feeAddresses []Address, maxParentTime int64) bool {
	if t.ValidateFeeOnly(feeAddresses) {
		return true
	}
	smallNumOutputs := len(t.Outputs) < 5
	total := Amount{Units: t.TotalOutputAmount(), Currency: Redgold}
	frac := total.ToFractional()
	minStake := frac >= 1.0
	if !(minStake && smallNumOutputs) {
		return false
	}
	selfTime, err := t.Time()
	if err != nil {
		selfTime = 0
	}
	delta := selfTime - maxParentTime
	minExpectedDelta := int64(30 * 1000)
	if !minStake && frac > 0 {
		minExpectedDelta = int64(float64(minExpectedDelta) / frac)
	}
	return delta > minExpectedDelta
}
