package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

// insertError maps a duplicate key on insert to models.ErrDuplicate.
func insertError(entity string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicate
	}
	return fmt.Errorf("failed to insert %s: %w", entity, err)
}
