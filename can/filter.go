package can

import (
	"math/bits"

	"github.com/cyphal-go/transport/transport"
)

// SubscriptionFilter builds the single (id, mask) acceptance filter that
// exactly matches sub on local, narrowing as little as possible: every bit
// the frame's CAN ID must carry for this subscription to be relevant is
// fixed in mask, and every other bit (priority, source node, anonymous
// flag) is left as a don't-care (spec.md §4.4 step 1).
func SubscriptionFilter(sub Subscription, local transport.NodeID) Filter {
	switch sub.Kind {
	case transport.KindMessage:
		id := messageReservedBits | (uint32(sub.Port)&subjectMask)<<subjectShift
		mask := uint32(messageReservedBits) | uint32(bitServiceNotMsg) | subjectMask<<subjectShift
		return Filter{ID: id, Mask: mask}
	case transport.KindRequest:
		id := uint32(bitServiceNotMsg) | uint32(bitRequestNotRsp) |
			(uint32(sub.Port)&serviceMask)<<serviceShift |
			(uint32(local)&nodeMask)<<destinationShift
		mask := uint32(bitServiceNotMsg) | uint32(bitRequestNotRsp) |
			serviceMask<<serviceShift | nodeMask<<destinationShift
		return Filter{ID: id, Mask: mask}
	default: // KindResponse
		id := uint32(bitServiceNotMsg) |
			(uint32(sub.Port)&serviceMask)<<serviceShift |
			(uint32(local)&nodeMask)<<destinationShift
		mask := uint32(bitServiceNotMsg) | uint32(bitRequestNotRsp) |
			serviceMask<<serviceShift | nodeMask<<destinationShift
		return Filter{ID: id, Mask: mask}
	}
}

// mergeFilters combines two filters into the single filter that accepts
// the union of what each accepted (spec.md §4.4 step 3).
func mergeFilters(a, b Filter) Filter {
	return Filter{
		ID:   a.ID & b.ID,
		Mask: (a.Mask & b.Mask) &^ (a.ID ^ b.ID),
	}
}

// mergeCost weighs how many previously-significant bits a merge of a and
// b turns into don't-cares, weighted by bit position: losing a
// higher-order bit as a don't-care roughly doubles the range of IDs the
// filter spuriously accepts (spec.md §4.4 step 2).
func mergeCost(a, b Filter) uint64 {
	merged := mergeFilters(a, b)
	newlyCleared := (a.Mask | b.Mask) &^ merged.Mask
	var cost uint64
	for newlyCleared != 0 {
		bit := bits.TrailingZeros32(newlyCleared)
		cost += uint64(1) << uint(bit)
		newlyCleared &^= 1 << uint(bit)
	}
	return cost
}

// OptimizeFilters reduces filters to at most banks entries by repeatedly
// merging the cheapest pair, until it fits or merging would otherwise
// produce an accept-all filter, in which case it returns
// transport.ErrOutOfMemory (spec.md §4.4).
func OptimizeFilters(filters []Filter, banks int) ([]Filter, error) {
	fs := append([]Filter(nil), filters...)
	if banks <= 0 {
		if len(fs) == 0 {
			return fs, nil
		}
		return nil, transport.ErrOutOfMemory
	}

	for len(fs) > banks {
		bestI, bestJ := -1, -1
		var bestCost uint64
		for i := 0; i < len(fs); i++ {
			for j := i + 1; j < len(fs); j++ {
				cost := mergeCost(fs[i], fs[j])
				if bestI == -1 || cost < bestCost ||
					(cost == bestCost && lowerID(fs[i], fs[j], fs[bestI], fs[bestJ])) {
					bestI, bestJ, bestCost = i, j, cost
				}
			}
		}

		merged := mergeFilters(fs[bestI], fs[bestJ])
		if merged.Mask == 0 {
			return nil, transport.ErrOutOfMemory
		}

		next := make([]Filter, 0, len(fs)-1)
		for i, f := range fs {
			if i != bestI && i != bestJ {
				next = append(next, f)
			}
		}
		next = append(next, merged)
		fs = next
	}
	return fs, nil
}

// lowerID breaks a mergeCost tie in favor of the pair whose smaller
// member has the lower numeric id (spec.md §4.4 step 2 "ties broken by
// lower numeric id first").
func lowerID(candI, candJ, curBestI, curBestJ Filter) bool {
	candMin := candI.ID
	if candJ.ID < candMin {
		candMin = candJ.ID
	}
	bestMin := curBestI.ID
	if curBestJ.ID < bestMin {
		bestMin = curBestJ.ID
	}
	return candMin < bestMin
}
