package models

import "time"

// TransactionStatus tracks a transaction after the deal is agreed.
type TransactionStatus string

const (
	TransactionAgreed    TransactionStatus = "Agreed"
	TransactionCompleted TransactionStatus = "Completed"
)

// Transaction is the terminal record of an agreed deal. At most one exists per deal.
type Transaction struct {
	ID                    string            `bson:"_id" json:"id"`
	DealID                string            `bson:"deal_id" json:"deal_id"`
	ListingID             string            `bson:"listing_id" json:"listing_id"`
	ProducerUID           string            `bson:"producer_uid" json:"producer_uid"`
	ProducerName          string            `bson:"producer_name" json:"producer_name"`
	BuyerUID              string            `bson:"buyer_uid" json:"buyer_uid"`
	BuyerName             string            `bson:"buyer_name" json:"buyer_name"`
	Feedstock             string            `bson:"feedstock" json:"feedstock"`
	Tonnes                float64           `bson:"tonnes" json:"tonnes"`
	PricePerTonne         float64           `bson:"price_per_tonne" json:"price_per_tonne"`
	TotalValue            float64           `bson:"total_value" json:"total_value"`
	CommissionRate        float64           `bson:"commission_rate" json:"commission_rate"`
	CommissionRateDisplay string            `bson:"commission_rate_display" json:"commission_rate_display"`
	CommissionAmount      float64           `bson:"commission_amount" json:"commission_amount"`
	DeliveryMethod        string            `bson:"delivery_method" json:"delivery_method"`
	DeliveryDate          string            `bson:"delivery_date" json:"delivery_date"`
	Status                TransactionStatus `bson:"status" json:"status"`
	ConfirmedByBuyer      bool              `bson:"confirmed_by_buyer" json:"confirmed_by_buyer"`
	ConfirmedByProducer   bool              `bson:"confirmed_by_producer" json:"confirmed_by_producer"`
	// BuyerRating is the rating the buyer received from the producer.
	BuyerRating *float64 `bson:"buyer_rating,omitempty" json:"buyer_rating,omitempty"`
	// ProducerRating is the rating the producer received from the buyer.
	ProducerRating *float64   `bson:"producer_rating,omitempty" json:"producer_rating,omitempty"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	CompletedAt    *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// PartyRole returns the role uid plays in the transaction and whether it is a party at all.
func (t Transaction) PartyRole(uid string) (BidderRole, bool) {
	switch {
	case uid == "":
		return "", false
	case t.BuyerUID == uid:
		return RoleBuyer, true
	case t.ProducerUID == uid:
		return RoleProducer, true
	default:
		return "", false
	}
}

// LedgerField is one named column of a ledger row.
type LedgerField struct {
	Name  string
	Value any
}

// LedgerRecord is an ordered, denormalized row sent to the external ledger.
type LedgerRecord []LedgerField

// Values returns the row values in column order.
func (r LedgerRecord) Values() []interface{} {
	values := make([]interface{}, 0, len(r))
	for _, f := range r {
		values = append(values, f.Value)
	}
	return values
}

// Map returns the record keyed by column name.
func (r LedgerRecord) Map() map[string]any {
	out := make(map[string]any, len(r))
	for _, f := range r {
		out[f.Name] = f.Value
	}
	return out
}
