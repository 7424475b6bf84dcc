package application

import (
	"encoding/json"
	"sort"

	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
	"github.com/MostroP2P/mostro-cli-sub000/pkg/envelope"
)

// OrderFilters narrows a reconciled order snapshot. Zero values mean no
// constraint.
type OrderFilters struct {
	Status   domain.OrderStatus
	Currency string
	Kind     domain.OrderKind
}

func (f OrderFilters) match(order domain.Order) bool {
	if f.Status != "" && order.Status != f.Status {
		return false
	}
	if f.Currency != "" && order.FiatCode != f.Currency {
		return false
	}
	if f.Kind != "" && order.Kind != f.Kind {
		return false
	}
	return true
}

type orderCandidate struct {
	order   domain.Order
	eventID string
}

// ReconcileOrders turns an unordered, possibly duplicated batch of public
// tag-encoded records into one canonical snapshot per order id. Relays may
// deliver the same logical update at different times and out of order; the
// only record that survives for an id is the most recently timestamped one.
// Ties on the timestamp are broken by lowest event id, an arbitrary but
// deterministic rule since the network has no sequencing authority.
// The result is sorted newest first.
func ReconcileOrders(events []nostr.Event, filters OrderFilters) []domain.Order {
	latest := map[string]orderCandidate{}
	for _, event := range events {
		order, err := domain.OrderFromTags(event)
		if err != nil {
			log.WithError(err).Debug("skipping undecodable order record")
			continue
		}
		candidate := orderCandidate{order: *order, eventID: event.ID}
		current, ok := latest[order.ID]
		if !ok || supersedes(candidate, current) {
			latest[order.ID] = candidate
		}
	}

	orders := make([]domain.Order, 0, len(latest))
	for _, candidate := range latest {
		if filters.match(candidate.order) {
			orders = append(orders, candidate.order)
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt != orders[j].CreatedAt {
			return orders[i].CreatedAt > orders[j].CreatedAt
		}
		return orders[i].ID < orders[j].ID
	})
	return orders
}

func supersedes(next, current orderCandidate) bool {
	if next.order.CreatedAt != current.order.CreatedAt {
		return next.order.CreatedAt > current.order.CreatedAt
	}
	return next.eventID < current.eventID
}

type disputeCandidate struct {
	dispute domain.Dispute
	eventID string
}

// ReconcileDisputes applies the same latest-wins policy to public dispute
// records.
func ReconcileDisputes(events []nostr.Event) []domain.Dispute {
	latest := map[string]disputeCandidate{}
	for _, event := range events {
		dispute, err := domain.DisputeFromTags(event)
		if err != nil {
			log.WithError(err).Debug("skipping undecodable dispute record")
			continue
		}
		candidate := disputeCandidate{dispute: *dispute, eventID: event.ID}
		current, ok := latest[dispute.ID]
		if !ok ||
			candidate.dispute.CreatedAt > current.dispute.CreatedAt ||
			(candidate.dispute.CreatedAt == current.dispute.CreatedAt &&
				candidate.eventID < current.eventID) {
			latest[dispute.ID] = candidate
		}
	}

	disputes := make([]domain.Dispute, 0, len(latest))
	for _, candidate := range latest {
		disputes = append(disputes, candidate.dispute)
	}
	sort.Slice(disputes, func(i, j int) bool {
		if disputes[i].CreatedAt != disputes[j].CreatedAt {
			return disputes[i].CreatedAt > disputes[j].CreatedAt
		}
		return disputes[i].ID < disputes[j].ID
	})
	return disputes
}

// IncomingMessage is a decrypted private message together with its transport
// metadata.
type IncomingMessage struct {
	EventID   string
	Sender    string
	CreatedAt int64
	Message   *domain.Message
	Signature string
}

// ReconcileMessages opens every envelope addressed to any of the candidate
// keys and assembles the resulting messages in chat-log order, oldest first.
// Records that cannot be decrypted or parsed are foreign or malformed and
// are dropped without failing the batch. Duplicates delivered through two
// different subscriptions are removed by transport event id; private
// messages have no domain-level id to deduplicate on.
func ReconcileMessages(
	events []nostr.Event, candidateSecretKeys []string, since int64,
) []IncomingMessage {
	seen := map[string]struct{}{}
	messages := make([]IncomingMessage, 0, len(events))

	for i := range events {
		event := events[i]
		if since > 0 && int64(event.CreatedAt) < since {
			continue
		}
		if _, ok := seen[event.ID]; ok {
			continue
		}

		incoming, err := openIncoming(&event, candidateSecretKeys)
		if err != nil {
			log.WithError(err).Debug("skipping unreadable private record")
			continue
		}
		seen[event.ID] = struct{}{}
		messages = append(messages, *incoming)
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt != messages[j].CreatedAt {
			return messages[i].CreatedAt < messages[j].CreatedAt
		}
		return messages[i].EventID < messages[j].EventID
	})
	return messages
}

// openIncoming peels an envelope and parses the signed message tuple it
// carries.
func openIncoming(
	event *nostr.Event, candidateSecretKeys []string,
) (*IncomingMessage, error) {
	payload, sender, err := envelope.Open(envelope.OpenOpts{
		Envelope:            event,
		CandidateSecretKeys: candidateSecretKeys,
	})
	if err != nil {
		return nil, err
	}

	tuple := domain.SignedMessage{}
	if err := json.Unmarshal([]byte(payload), &tuple); err != nil {
		return nil, err
	}

	return &IncomingMessage{
		EventID:   event.ID,
		Sender:    sender,
		CreatedAt: int64(event.CreatedAt),
		Message:   tuple.Message,
		Signature: tuple.Signature,
	}, nil
}
