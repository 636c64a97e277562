// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"math"
)

// PriceVolume is one rung of a generated order curve: a price in
// RDG per pair unit and the volume available at that price.
type PriceVolume struct {
	Price  float64
	Volume int64
}

// GeneratePriceVolumes spreads availableVolume across divisions price
// rungs around centerPrice, geometrically weighted so volume
// concentrates near the center. Curves below the dust limit are empty.
func GeneratePriceVolumes(
	availableVolume int64,
	centerPrice float64,
	divisions int,
	priceWidth float64,
	scale float64,
) []PriceVolume {
	if availableVolume < DustLimit {
		return nil
	}

	df := float64(divisions)
	ratio := math.Pow(1.0/scale, 1.0/(df-1.0))
	firstTerm := float64(availableVolume) * scale / (1.0 - math.Pow(ratio, df))

	var pvs []PriceVolume
	for i := 0; i < divisions; i++ {
		priceOffset := float64(i + 1)
		price := centerPrice + priceOffset*(priceWidth/df)
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			continue
		}
		multiplier := math.Sqrt(math.Pow(ratio, float64(divisions-i)))
		volume := int64(firstTerm * multiplier)
		pvs = append(pvs, PriceVolume{Price: price, Volume: volume})
	}

	normalizeVolumes(availableVolume, &pvs)

	// Round the normalized total back onto the available volume.
	var total int64
	for _, pv := range pvs {
		total += pv.Volume
	}
	adjustment := availableVolume - total
	for i := range pvs {
		if adjustment == 0 {
			break
		}
		if adjustment > 0 && pvs[i].Volume > 0 {
			pvs[i].Volume++
			adjustment--
		} else if adjustment < 0 && pvs[i].Volume > 1 {
			pvs[i].Volume--
			adjustment++
		}
	}

	out := pvs[:0]
	for _, pv := range pvs {
		if pv.Volume > 0 && pv.Volume <= availableVolume {
			out = append(out, pv)
		}
	}
	return out
}

func normalizeVolumes(availableVolume int64, pvs *[]PriceVolume) {
	var total int64
	for _, pv := range *pvs {
		total += pv.Volume
	}
	if total == 0 {
		return
	}
	dustTrigger := false
	for i := range *pvs {
		v := int64(math.Round(float64((*pvs)[i].Volume) / float64(total) * float64(availableVolume)))
		(*pvs)[i].Volume = v
		if v < DustLimit {
			dustTrigger = true
		}
	}
	if !dustTrigger {
		return
	}
	// Too little volume to spread thinly: collapse to dust-sized rungs
	// at the innermost prices.
	divs := int(availableVolume / DustLimit)
	var collapsed []PriceVolume
	for i, pv := range *pvs {
		if i < divs {
			collapsed = append(collapsed, PriceVolume{Price: pv.Price, Volume: DustLimit})
		}
	}
	*pvs = collapsed
}
