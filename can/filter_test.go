package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphal-go/transport/transport"
)

func TestSubscriptionFilterAcceptsMatchingID(t *testing.T) {
	sub := Subscription{Kind: transport.KindMessage, Port: 100}
	filter := SubscriptionFilter(sub, 1)

	source := transport.NodeID(9)
	id, err := EncodeMessageID(transport.PriorityNominal, 100, &source)
	require.NoError(t, err)

	assert.Equal(t, filter.ID&filter.Mask, uint32(id)&filter.Mask)
}

func TestSubscriptionFilterRejectsOtherSubject(t *testing.T) {
	sub := Subscription{Kind: transport.KindMessage, Port: 100}
	filter := SubscriptionFilter(sub, 1)

	source := transport.NodeID(9)
	id, err := EncodeMessageID(transport.PriorityNominal, 101, &source)
	require.NoError(t, err)

	assert.NotEqual(t, filter.ID&filter.Mask, uint32(id)&filter.Mask)
}

func TestOptimizeFiltersMergesWhenBanksScarce(t *testing.T) {
	filters := []Filter{
		SubscriptionFilter(Subscription{Kind: transport.KindMessage, Port: 100}, 1),
		SubscriptionFilter(Subscription{Kind: transport.KindMessage, Port: 101}, 1),
		SubscriptionFilter(Subscription{Kind: transport.KindMessage, Port: 200}, 1),
	}

	merged, err := OptimizeFilters(filters, 1)
	require.NoError(t, err)
	require.Len(t, merged, 1)

	// Every subject that was in the original set must still be accepted
	// by the single merged filter.
	for _, port := range []transport.SubjectID{100, 101, 200} {
		source := transport.NodeID(9)
		id, err := EncodeMessageID(transport.PriorityNominal, port, &source)
		require.NoError(t, err)
		assert.Equal(t, merged[0].ID&merged[0].Mask, uint32(id)&merged[0].Mask)
	}
}

func TestOptimizeFiltersNoBanksWithFiltersIsOutOfMemory(t *testing.T) {
	filters := []Filter{SubscriptionFilter(Subscription{Kind: transport.KindMessage, Port: 100}, 1)}
	_, err := OptimizeFilters(filters, 0)
	assert.ErrorIs(t, err, transport.ErrOutOfMemory)
}

func TestOptimizeFiltersEmptyInputWithNoBanks(t *testing.T) {
	merged, err := OptimizeFilters(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, merged)
}
