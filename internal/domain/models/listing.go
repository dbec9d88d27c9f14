package models

// Listing is a producer's catalog entry. The deal room only reads it.
type Listing struct {
	ID              string   `bson:"_id" json:"id"`
	ProducerUID     string   `bson:"producer_uid" json:"producer_uid"`
	ProducerName    string   `bson:"producer_name" json:"producer_name"`
	Feedstock       string   `bson:"feedstock" json:"feedstock"`
	PricePerTonne   float64  `bson:"price_per_tonne" json:"price_per_tonne"`
	AvailableTonnes float64  `bson:"available_tonnes" json:"available_tonnes"`
	MinOrderTonnes  float64  `bson:"min_order_tonnes" json:"min_order_tonnes"`
	HardFloor       *float64 `bson:"hard_floor,omitempty" json:"-"`
	Region          string   `bson:"region" json:"region"`
	County          string   `bson:"county" json:"county"`
}

// FullValue is the value of the entire available volume at the listed price.
func (l Listing) FullValue() float64 {
	return l.AvailableTonnes * l.PricePerTonne
}
