package application

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
)

const (
	orderID1 = "11111111-1111-4111-8111-111111111111"
	orderID2 = "22222222-2222-4222-8222-222222222222"
)

func orderEvent(eventID, orderID string, createdAt int64, tags nostr.Tags) nostr.Event {
	all := nostr.Tags{{"d", orderID}}
	all = append(all, tags...)
	return nostr.Event{
		ID:        eventID,
		Kind:      domain.EventKindOrder,
		CreatedAt: nostr.Timestamp(createdAt),
		Tags:      all,
	}
}

func TestReconcileOrdersLatestWins(t *testing.T) {
	events := []nostr.Event{
		orderEvent("ev2", orderID1, 20, nostr.Tags{{"s", "active"}}),
		orderEvent("ev1", orderID1, 10, nostr.Tags{{"s", "pending"}}),
	}

	orders := ReconcileOrders(events, OrderFilters{})
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusActive, orders[0].Status)
	assert.Equal(t, int64(20), orders[0].CreatedAt)
}

func TestReconcileOrdersIdempotent(t *testing.T) {
	events := []nostr.Event{
		orderEvent("ev1", orderID1, 10, nostr.Tags{{"s", "pending"}}),
		orderEvent("ev2", orderID1, 20, nostr.Tags{{"s", "active"}}),
		orderEvent("ev3", orderID2, 15, nostr.Tags{{"s", "pending"}}),
	}

	first := ReconcileOrders(events, OrderFilters{})
	second := ReconcileOrders(events, OrderFilters{})
	assert.Equal(t, first, second)
}

func TestReconcileOrdersDeterministicTiebreak(t *testing.T) {
	// same id, same timestamp, different status: the survivor must not
	// depend on input order
	a := orderEvent("aaa", orderID1, 10, nostr.Tags{{"s", "pending"}})
	b := orderEvent("bbb", orderID1, 10, nostr.Tags{{"s", "active"}})

	forward := ReconcileOrders([]nostr.Event{a, b}, OrderFilters{})
	backward := ReconcileOrders([]nostr.Event{b, a}, OrderFilters{})
	require.Len(t, forward, 1)
	assert.Equal(t, forward, backward)
	assert.Equal(t, domain.StatusPending, forward[0].Status)
}

func TestReconcileOrdersSkipsUndecodableRecords(t *testing.T) {
	events := []nostr.Event{
		{ID: "bad", CreatedAt: 30, Tags: nostr.Tags{{"s", "pending"}}},
		orderEvent("good", orderID1, 10, nostr.Tags{{"s", "pending"}}),
	}
	orders := ReconcileOrders(events, OrderFilters{})
	require.Len(t, orders, 1)
	assert.Equal(t, orderID1, orders[0].ID)
}

func TestReconcileOrdersMalformedFiatAmountKeepsLatestRecord(t *testing.T) {
	events := []nostr.Event{
		orderEvent("ev1", orderID1, 10, nostr.Tags{
			{"s", "pending"}, {"fa", "100"},
		}),
		orderEvent("ev2", orderID1, 20, nostr.Tags{
			{"s", "active"}, {"fa", "150.5"},
		}),
	}

	orders := ReconcileOrders(events, OrderFilters{})
	require.Len(t, orders, 1)
	// the t=20 record survives with its status, but the malformed amount
	// was dropped during decode instead of silently becoming an integer
	assert.Equal(t, domain.StatusActive, orders[0].Status)
	assert.Zero(t, orders[0].FiatAmount)
}

func TestReconcileOrdersFilters(t *testing.T) {
	events := []nostr.Event{
		orderEvent("ev1", orderID1, 10, nostr.Tags{
			{"s", "pending"}, {"f", "EUR"}, {"k", "sell"},
		}),
		orderEvent("ev2", orderID2, 20, nostr.Tags{
			{"s", "active"}, {"f", "VES"}, {"k", "buy"},
		}),
	}

	tests := []struct {
		name    string
		filters OrderFilters
		wantIDs []string
	}{
		{
			name:    "no constraint",
			filters: OrderFilters{},
			wantIDs: []string{orderID2, orderID1},
		},
		{
			name:    "by status",
			filters: OrderFilters{Status: domain.StatusPending},
			wantIDs: []string{orderID1},
		},
		{
			name:    "by currency",
			filters: OrderFilters{Currency: "VES"},
			wantIDs: []string{orderID2},
		},
		{
			name:    "by kind",
			filters: OrderFilters{Kind: domain.OrderKindSell},
			wantIDs: []string{orderID1},
		},
		{
			name: "combined, no match",
			filters: OrderFilters{
				Status: domain.StatusPending, Currency: "VES",
			},
			wantIDs: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := ReconcileOrders(events, tt.filters)
			ids := make([]string, 0, len(orders))
			for _, order := range orders {
				ids = append(ids, order.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestReconcileOrdersSortsNewestFirst(t *testing.T) {
	events := []nostr.Event{
		orderEvent("ev1", orderID1, 10, nostr.Tags{{"s", "pending"}}),
		orderEvent("ev2", orderID2, 20, nostr.Tags{{"s", "pending"}}),
	}
	orders := ReconcileOrders(events, OrderFilters{})
	require.Len(t, orders, 2)
	assert.Equal(t, orderID2, orders[0].ID)
	assert.Equal(t, orderID1, orders[1].ID)
}

func TestReconcileDisputesLatestWins(t *testing.T) {
	disputeID := "4a4da1e9-0d98-4c74-819b-3bbbbfc3c7d9"
	events := []nostr.Event{
		{
			ID:        "ev1",
			CreatedAt: 10,
			Tags:      nostr.Tags{{"d", disputeID}, {"s", "initiated"}},
		},
		{
			ID:        "ev2",
			CreatedAt: 20,
			Tags:      nostr.Tags{{"d", disputeID}, {"s", "in-progress"}},
		},
		{
			ID:        "ev3",
			CreatedAt: 15,
			Tags:      nostr.Tags{{"d", "not-a-uuid"}, {"s", "initiated"}},
		},
	}

	disputes := ReconcileDisputes(events)
	require.Len(t, disputes, 1)
	assert.Equal(t, domain.DisputeInProgress, disputes[0].Status)
}

func TestReconcileMessagesChatOrderAndDedup(t *testing.T) {
	mostroSecret, _ := newTestKeys(t)
	tradeSecret, tradePub := newTestKeys(t)

	older := wrapReply(t, &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionPayInvoice,
	}, mostroSecret, tradePub)
	older.CreatedAt = 100

	newer := wrapReply(t, &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionRelease,
	}, mostroSecret, tradePub)
	newer.CreatedAt = 200

	// the same transport record delivered twice via two subscriptions
	events := []nostr.Event{newer, older, older}

	messages := ReconcileMessages(events, []string{tradeSecret}, 0)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.ActionPayInvoice, messages[0].Message.Action)
	assert.Equal(t, domain.ActionRelease, messages[1].Message.Action)
}

func TestReconcileMessagesSinceCutoff(t *testing.T) {
	mostroSecret, _ := newTestKeys(t)
	tradeSecret, tradePub := newTestKeys(t)

	old := wrapReply(t, &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionSendDm,
	}, mostroSecret, tradePub)
	old.CreatedAt = 50

	recent := wrapReply(t, &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionSendDm,
	}, mostroSecret, tradePub)
	recent.CreatedAt = 500

	messages := ReconcileMessages(
		[]nostr.Event{old, recent}, []string{tradeSecret}, 100,
	)
	require.Len(t, messages, 1)
	assert.Equal(t, int64(500), messages[0].CreatedAt)
}

func TestReconcileMessagesSkipsForeignRecords(t *testing.T) {
	mostroSecret, _ := newTestKeys(t)
	tradeSecret, tradePub := newTestKeys(t)
	_, strangerPub := newTestKeys(t)

	mine := wrapReply(t, &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionSendDm,
	}, mostroSecret, tradePub)
	foreign := wrapReply(t, &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionSendDm,
	}, mostroSecret, strangerPub)

	messages := ReconcileMessages(
		[]nostr.Event{foreign, mine}, []string{tradeSecret}, 0,
	)
	require.Len(t, messages, 1)
	assert.Equal(t, mine.ID, messages[0].EventID)
}
