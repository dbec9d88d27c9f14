package stream

import "github.com/mamadbah2/dealroom/internal/domain/models"

// Dedupe keeps a subscriber's view monotonic: deal updates must carry a newer
// version than the last one delivered and each message is delivered once.
type Dedupe struct {
	lastVersion int64
	seen        map[string]struct{}
}

func NewDedupe() *Dedupe {
	return &Dedupe{seen: map[string]struct{}{}}
}

// Seed records what the initial snapshot already delivered.
func (d *Dedupe) Seed(snapshot *models.DealSnapshot) {
	if snapshot == nil {
		return
	}
	if snapshot.Deal != nil && snapshot.Deal.Version > d.lastVersion {
		d.lastVersion = snapshot.Deal.Version
	}
	for _, msg := range snapshot.Messages {
		d.seen[msg.ID] = struct{}{}
	}
}

// Allow reports whether event should be forwarded and records it if so.
func (d *Dedupe) Allow(event models.DealEvent) bool {
	switch event.Type {
	case models.EventDealUpdated:
		if event.Version <= d.lastVersion {
			return false
		}
		d.lastVersion = event.Version
		return true
	case models.EventMessagePosted:
		if event.Message == nil {
			return false
		}
		if _, ok := d.seen[event.Message.ID]; ok {
			return false
		}
		d.seen[event.Message.ID] = struct{}{}
		return true
	default:
		return false
	}
}
