package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

const (
	// EventKindOrder is the kind of the public, tag-encoded records the
	// marketplace publishes for orders and disputes.
	EventKindOrder = 38383

	// PlatformTag marks records belonging to this marketplace.
	PlatformTag = "mostrop2p"

	recordTypeOrder   = "order"
	recordTypeDispute = "dispute"
)

// OrderTags projects an order onto the flat key-value tag encoding used in
// public broadcast events. OrderFromTags is its exact inverse modulo unknown
// tags.
func OrderTags(o Order) nostr.Tags {
	tags := nostr.Tags{
		{"d", o.ID},
		{"k", string(o.Kind)},
		{"f", o.FiatCode},
		{"s", string(o.Status)},
		{"amt", strconv.FormatInt(o.Amount, 10)},
	}

	if o.HasRange() {
		tags = append(tags, nostr.Tag{
			"fa",
			strconv.FormatInt(*o.MinAmount, 10),
			strconv.FormatInt(*o.MaxAmount, 10),
		})
	} else {
		tags = append(tags, nostr.Tag{
			"fa", strconv.FormatInt(o.FiatAmount, 10),
		})
	}

	pm := nostr.Tag{"pm"}
	for _, method := range strings.Split(o.PaymentMethod, ",") {
		pm = append(pm, method)
	}
	tags = append(tags, pm)

	tags = append(tags, nostr.Tag{
		"premium", strconv.FormatInt(o.Premium, 10),
	})
	if o.ExpiresAt > 0 {
		tags = append(tags, nostr.Tag{
			"expiration", strconv.FormatInt(o.ExpiresAt, 10),
		})
	}
	tags = append(tags, nostr.Tag{"y", PlatformTag})
	tags = append(tags, nostr.Tag{"z", recordTypeOrder})

	return tags
}

// OrderFromTags decodes a public tag-encoded record back into an order.
// Unknown tags are ignored for forward compatibility; malformed numeric tags
// are dropped without touching the rest of the record, so a bad amount never
// silently becomes a wrong integer. A record without an id is undecodable.
func OrderFromTags(event nostr.Event) (*Order, error) {
	order := &Order{CreatedAt: int64(event.CreatedAt)}
	statusSeen := false

	for _, tag := range event.Tags {
		if len(tag) < 2 {
			continue
		}
		key, value := tag[0], tag[1]

		switch key {
		case "d":
			order.ID = value
		case "k":
			if kind, ok := ParseOrderKind(value); ok {
				order.Kind = kind
			}
		case "s":
			statusSeen = true
			if status, ok := ParseOrderStatus(value); ok {
				order.Status = status
			}
		case "f":
			order.FiatCode = value
		case "amt":
			if amount, err := parseTagInt(value); err == nil {
				order.Amount = amount
			}
		case "fa":
			min, max, err := parseFiatAmount(tag[1:])
			if err != nil {
				continue
			}
			if max != nil {
				order.MinAmount, order.MaxAmount = &min.value, &max.value
			} else {
				order.FiatAmount = min.value
			}
		case "pm":
			order.PaymentMethod = strings.Join(tag[1:], ",")
		case "premium":
			if premium, err := parseTagInt(value); err == nil {
				order.Premium = premium
			}
		case "expiration":
			if expiresAt, err := parseTagInt(value); err == nil {
				order.ExpiresAt = expiresAt
			}
		}
	}

	if order.ID == "" {
		return nil, fmt.Errorf("%w: missing order id tag", ErrTagDecode)
	}
	if !statusSeen {
		order.Status = StatusPending
	}
	return order, nil
}

type tagInt struct {
	value int64
}

// parseTagInt parses an integer tag value. Values carrying a decimal point
// are rejected, never truncated.
func parseTagInt(value string) (int64, error) {
	if strings.ContainsAny(value, ".,") {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrTagDecode, value)
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrTagDecode, err)
	}
	return parsed, nil
}

// parseFiatAmount interprets the fiat-amount tag values: one value is an
// exact amount, two values are a min/max range. Any malformed value voids
// the whole tag.
func parseFiatAmount(values []string) (*tagInt, *tagInt, error) {
	switch len(values) {
	case 1:
		exact, err := parseTagInt(values[0])
		if err != nil {
			return nil, nil, err
		}
		return &tagInt{exact}, nil, nil
	case 2:
		min, err := parseTagInt(values[0])
		if err != nil {
			return nil, nil, err
		}
		max, err := parseTagInt(values[1])
		if err != nil {
			return nil, nil, err
		}
		return &tagInt{min}, &tagInt{max}, nil
	default:
		return nil, nil, fmt.Errorf(
			"%w: fiat-amount carries %d values", ErrTagDecode, len(values),
		)
	}
}
