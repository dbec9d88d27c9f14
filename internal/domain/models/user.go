package models

import "time"

// VerificationStats is the recomputed trust summary stored on a user record.
type VerificationStats struct {
	Verified          bool      `bson:"verified" json:"verified"`
	Reason            string    `bson:"reason" json:"reason"`
	ConfirmationRate  float64   `bson:"confirmation_rate" json:"confirmation_rate"`
	AverageRating     float64   `bson:"average_rating" json:"average_rating"`
	TotalTransactions int       `bson:"total_transactions" json:"total_transactions"`
	LastChecked       time.Time `bson:"last_checked" json:"last_checked"`
}
