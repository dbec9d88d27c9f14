package models

import "time"

// DealStatus is the lifecycle state of a deal room.
type DealStatus string

const (
	DealOpen      DealStatus = "Open"
	DealAgreed    DealStatus = "Agreed"
	DealExpired   DealStatus = "Expired"
	DealCancelled DealStatus = "Cancelled"
)

// DealBracket classifies a deal by its estimated value.
type DealBracket string

const (
	BracketSmall  DealBracket = "small"
	BracketMedium DealBracket = "medium"
	BracketLarge  DealBracket = "large"
)

// DealComplexity is computed once from the listing when the deal room opens.
type DealComplexity struct {
	Bracket        DealBracket `bson:"bracket" json:"bracket"`
	Label          string      `bson:"label" json:"label"`
	EstimatedValue float64     `bson:"estimated_value" json:"estimated_value"`
	MaxRounds      int         `bson:"max_rounds" json:"max_rounds"`
	ExpiryDays     int         `bson:"expiry_days" json:"expiry_days"`
	ExtensionDays  int         `bson:"extension_days" json:"extension_days"`
}

// PriceConfidence describes how many comparables back a fair-price band.
type PriceConfidence string

const (
	ConfidenceHigh    PriceConfidence = "high"
	ConfidenceLimited PriceConfidence = "limited"
)

// FairPriceRange is the price band derived from comparable listings.
type FairPriceRange struct {
	Average         float64         `bson:"average" json:"average"`
	Low             float64         `bson:"low" json:"low"`
	High            float64         `bson:"high" json:"high"`
	Confidence      PriceConfidence `bson:"confidence" json:"confidence"`
	ComparableCount int             `bson:"comparable_count" json:"comparable_count"`
}

// AgreedTerms freezes the economics of an accepted bid or a buy-now.
type AgreedTerms struct {
	BidID                 string    `bson:"bid_id,omitempty" json:"bid_id,omitempty"`
	Volume                float64   `bson:"volume" json:"volume"`
	PricePerTonne         float64   `bson:"price_per_tonne" json:"price_per_tonne"`
	TotalValue            float64   `bson:"total_value" json:"total_value"`
	CommissionRate        float64   `bson:"commission_rate" json:"commission_rate"`
	CommissionRateDisplay string    `bson:"commission_rate_display" json:"commission_rate_display"`
	CommissionAmount      float64   `bson:"commission_amount" json:"commission_amount"`
	DeliveryMethod        string    `bson:"delivery_method" json:"delivery_method"`
	DeliveryDate          string    `bson:"delivery_date" json:"delivery_date"`
	AgreedAt              time.Time `bson:"agreed_at" json:"agreed_at"`
}

// Deal is one buyer-producer negotiation over a single listing.
//
// Bids are embedded so that a negotiation step is a single document write.
// Version increases on every write and guards compare-and-swap updates.
type Deal struct {
	ID           string `bson:"_id" json:"id"`
	ListingID    string `bson:"listing_id" json:"listing_id"`
	ProducerUID  string `bson:"producer_uid" json:"producer_uid"`
	ProducerName string `bson:"producer_name" json:"producer_name"`
	BuyerUID     string `bson:"buyer_uid" json:"buyer_uid"`
	BuyerName    string `bson:"buyer_name" json:"buyer_name"`
	Feedstock    string `bson:"feedstock" json:"feedstock"`

	ListedPricePerTonne float64  `bson:"listed_price_per_tonne" json:"listed_price_per_tonne"`
	AvailableTonnes     float64  `bson:"available_tonnes" json:"available_tonnes"`
	MinOrderTonnes      float64  `bson:"min_order_tonnes" json:"min_order_tonnes"`
	HardFloor           *float64 `bson:"hard_floor,omitempty" json:"-"`

	Complexity     DealComplexity  `bson:"complexity" json:"complexity"`
	FairPriceRange *FairPriceRange `bson:"fair_price_range,omitempty" json:"fair_price_range,omitempty"`

	Status               DealStatus   `bson:"status" json:"status"`
	RoundsUsed           int          `bson:"rounds_used" json:"rounds_used"`
	MaxRounds            int          `bson:"max_rounds" json:"max_rounds"`
	CurrentBidID         string       `bson:"current_bid_id,omitempty" json:"current_bid_id,omitempty"`
	ExtensionRequested   bool         `bson:"extension_requested" json:"extension_requested"`
	ExtensionRequestedBy string       `bson:"extension_requested_by,omitempty" json:"extension_requested_by,omitempty"`
	ExtensionUsed        bool         `bson:"extension_used" json:"extension_used"`
	AgreedTerms          *AgreedTerms `bson:"agreed_terms,omitempty" json:"agreed_terms,omitempty"`
	TransactionID        string       `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Bids                 []Bid        `bson:"bids" json:"bids"`

	ExpiryDate time.Time `bson:"expiry_date" json:"expiry_date"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
	Version    int64     `bson:"version" json:"version"`
}

// FindBid returns a pointer into d.Bids, or nil.
func (d *Deal) FindBid(bidID string) *Bid {
	for i := range d.Bids {
		if d.Bids[i].ID == bidID {
			return &d.Bids[i]
		}
	}
	return nil
}

// LastBidAt is the timestamp of the most recent bid, zero when there are none.
func (d *Deal) LastBidAt() time.Time {
	if len(d.Bids) == 0 {
		return time.Time{}
	}
	return d.Bids[len(d.Bids)-1].Timestamp
}

// RoleOf reports the negotiating side of uid in this deal.
func (d *Deal) RoleOf(uid string) BidderRole {
	if uid != "" && uid == d.BuyerUID {
		return RoleBuyer
	}
	return RoleProducer
}

// IsLapsed reports whether an open deal has passed its expiry date at now.
func (d *Deal) IsLapsed(now time.Time) bool {
	return d.Status == DealOpen && now.After(d.ExpiryDate)
}
