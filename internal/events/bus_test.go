package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDispatchesInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	var order []int
	b.On(PartyWipe, func(ctx context.Context) { order = append(order, 1) })
	b.On(PartyWipe, func(ctx context.Context) { order = append(order, 2) })

	b.Emit(context.Background(), PartyWipe)
	assert.Equal(t, []int{1, 2}, order)
}

func TestEmitWithoutSubscribersIsHarmless(t *testing.T) {
	b := NewBus()
	b.Emit(context.Background(), PlayerDeath)
}

func TestEventsAreIndependent(t *testing.T) {
	b := NewBus()
	wipes, deaths := 0, 0
	b.On(PartyWipe, func(ctx context.Context) { wipes++ })
	b.On(PlayerDeath, func(ctx context.Context) { deaths++ })

	b.Emit(context.Background(), PlayerDeath)
	assert.Equal(t, 0, wipes)
	assert.Equal(t, 1, deaths)
}
