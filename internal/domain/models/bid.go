package models

import "time"

// BidStatus is the outcome of a single negotiation action.
type BidStatus string

const (
	BidPending      BidStatus = "Pending"
	BidAccepted     BidStatus = "Accepted"
	BidRejected     BidStatus = "Rejected"
	BidCountered    BidStatus = "Countered"
	BidAutoRejected BidStatus = "Auto-Rejected"
)

// BidderRole identifies which side of the deal placed a bid.
type BidderRole string

const (
	RoleBuyer    BidderRole = "buyer"
	RoleProducer BidderRole = "producer"
)

// ActionKind tags a NegotiationAction.
type ActionKind string

const (
	ActionBid     ActionKind = "bid"
	ActionCounter ActionKind = "counter"
)

// AutoRejectBelowFloor is recorded on bids priced under the producer's hard floor.
const AutoRejectBelowFloor = "Below minimum accepted price"

// Delivery carries the logistics part of an offer.
type Delivery struct {
	Method string `bson:"method" json:"method"`
	Date   string `bson:"date" json:"date"`
}

// NegotiationAction is either an opening bid or a counter to a pending bid.
// CounterTo is set only when Kind is ActionCounter.
type NegotiationAction struct {
	Kind          ActionKind
	CounterTo     string
	BidderUID     string
	BidderName    string
	BidderRole    BidderRole
	Volume        float64
	PricePerTonne float64
	Delivery      Delivery
	Notes         string
}

// Bid is one entry of a deal's negotiation history. Only Status changes after
// the bid is recorded.
type Bid struct {
	ID                    string     `bson:"id" json:"id"`
	Kind                  ActionKind `bson:"kind" json:"kind"`
	CounterTo             string     `bson:"counter_to,omitempty" json:"counter_to,omitempty"`
	BidderUID             string     `bson:"bidder_uid" json:"bidder_uid"`
	BidderName            string     `bson:"bidder_name" json:"bidder_name"`
	BidderRole            BidderRole `bson:"bidder_role" json:"bidder_role"`
	Volume                float64    `bson:"volume" json:"volume"`
	PricePerTonne         float64    `bson:"price_per_tonne" json:"price_per_tonne"`
	TotalValue            float64    `bson:"total_value" json:"total_value"`
	CommissionRate        float64    `bson:"commission_rate" json:"commission_rate"`
	CommissionRateDisplay string     `bson:"commission_rate_display" json:"commission_rate_display"`
	CommissionAmount      float64    `bson:"commission_amount" json:"commission_amount"`
	DeliveryMethod        string     `bson:"delivery_method" json:"delivery_method"`
	DeliveryDate          string     `bson:"delivery_date" json:"delivery_date"`
	Notes                 string     `bson:"notes,omitempty" json:"notes,omitempty"`
	Status                BidStatus  `bson:"status" json:"status"`
	AutoRejectReason      string     `bson:"auto_reject_reason,omitempty" json:"auto_reject_reason,omitempty"`
	NearAsking            bool       `bson:"near_asking" json:"near_asking"`
	Timestamp             time.Time  `bson:"timestamp" json:"timestamp"`
}
