package models

import "time"

// Message is a free-text chat entry inside a deal room.
type Message struct {
	ID         string     `bson:"_id" json:"id"`
	DealID     string     `bson:"deal_id" json:"deal_id"`
	SenderUID  string     `bson:"sender_uid" json:"sender_uid"`
	SenderName string     `bson:"sender_name" json:"sender_name"`
	SenderRole BidderRole `bson:"sender_role" json:"sender_role"`
	Text       string     `bson:"text" json:"text"`
	Timestamp  time.Time  `bson:"timestamp" json:"timestamp"`
}

// DealEventType names the kind of change carried by a DealEvent.
type DealEventType string

const (
	EventDealUpdated   DealEventType = "deal.updated"
	EventMessagePosted DealEventType = "message.posted"
)

// DealEvent is pushed to deal-room subscribers after every successful write.
type DealEvent struct {
	Type    DealEventType `json:"type"`
	DealID  string        `json:"deal_id"`
	Version int64         `json:"version"`
	Deal    *Deal         `json:"deal,omitempty"`
	Message *Message      `json:"message,omitempty"`
	At      time.Time     `json:"at"`
}

// DealSnapshot is the initial state sent to a new subscriber.
type DealSnapshot struct {
	Deal     *Deal     `json:"deal"`
	Messages []Message `json:"messages"`
}
