package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
)

// DisputeTags projects a dispute onto its public tag encoding. Only the id
// and status tags are defined for disputes.
func DisputeTags(d Dispute) nostr.Tags {
	return nostr.Tags{
		{"d", d.ID},
		{"s", string(d.Status)},
		{"y", PlatformTag},
		{"z", recordTypeDispute},
	}
}

// DisputeFromTags decodes a public dispute record. A malformed id is a hard
// decode failure for this one record; batch consumers skip it and continue.
func DisputeFromTags(event nostr.Event) (*Dispute, error) {
	dispute := &Dispute{CreatedAt: int64(event.CreatedAt)}

	for _, tag := range event.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case "d":
			if _, err := uuid.Parse(tag[1]); err != nil {
				return nil, fmt.Errorf(
					"%w: dispute id %q is not a valid uuid", ErrTagDecode, tag[1],
				)
			}
			dispute.ID = tag[1]
		case "s":
			if status, ok := ParseDisputeStatus(tag[1]); ok {
				dispute.Status = status
			}
		}
	}

	if dispute.ID == "" {
		return nil, fmt.Errorf("%w: missing dispute id tag", ErrTagDecode)
	}
	return dispute, nil
}
