package finalizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/domain/models"
	"github.com/mamadbah2/dealroom/pkg/metrics"
)

// DefaultLedgerTable is the ledger table transactions are appended to.
const DefaultLedgerTable = "Transactions"

// ErrNotAgreed is returned when finalization is attempted on a deal without agreed terms.
var ErrNotAgreed = errors.New("deal is not agreed")

// TransactionStore persists transactions. InsertTransaction must return
// models.ErrDuplicate when a transaction already exists for the deal.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	FindByDealID(ctx context.Context, dealID string) (*models.Transaction, error)
}

// LedgerSink receives one denormalized row per new transaction.
type LedgerSink interface {
	Append(ctx context.Context, table string, record models.LedgerRecord) error
}

// NopSink discards ledger rows.
type NopSink struct{}

// Append implements LedgerSink.
func (NopSink) Append(context.Context, string, models.LedgerRecord) error { return nil }

// Service creates the transaction of an agreed deal and mirrors it to the ledger.
type Service struct {
	store   TransactionStore
	sink    LedgerSink
	table   string
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewService builds a finalizer. A nil sink disables the ledger.
func NewService(store TransactionStore, sink LedgerSink, table string, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = NopSink{}
	}
	if table == "" {
		table = DefaultLedgerTable
	}
	return &Service{
		store:   store,
		sink:    sink,
		table:   table,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Finalize records the transaction for deal. Calling it again for the same
// deal returns the stored transaction without writing a second ledger row.
func (s *Service) Finalize(ctx context.Context, deal *models.Deal) (*models.Transaction, error) {
	if deal == nil || deal.Status != models.DealAgreed || deal.AgreedTerms == nil {
		return nil, ErrNotAgreed
	}

	now := s.now().UTC()
	tx := BuildTransaction(deal, s.newID(), now)

	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		if !errors.Is(err, models.ErrDuplicate) {
			return nil, fmt.Errorf("failed to insert transaction for deal %s: %w", deal.ID, err)
		}
		existing, findErr := s.store.FindByDealID(ctx, deal.ID)
		if findErr != nil {
			return nil, fmt.Errorf("failed to load existing transaction for deal %s: %w", deal.ID, findErr)
		}
		s.logger.Info("transaction already recorded", zap.String("deal_id", deal.ID), zap.String("transaction_id", existing.ID))
		return existing, nil
	}

	s.logger.Info("transaction recorded",
		zap.String("deal_id", deal.ID),
		zap.String("transaction_id", tx.ID),
		zap.Float64("total_value", tx.TotalValue),
		zap.Float64("commission_amount", tx.CommissionAmount))

	if err := s.sink.Append(ctx, s.table, LedgerRow(tx, now)); err != nil {
		s.metrics.IncFinalizeFailure("ledger")
		s.logger.Warn("failed to append ledger row", zap.String("transaction_id", tx.ID), zap.Error(err))
	}

	return tx, nil
}

// BuildTransaction copies the agreed terms of deal into a new transaction.
func BuildTransaction(deal *models.Deal, id string, now time.Time) *models.Transaction {
	terms := deal.AgreedTerms
	return &models.Transaction{
		ID:                    id,
		DealID:                deal.ID,
		ListingID:             deal.ListingID,
		ProducerUID:           deal.ProducerUID,
		ProducerName:          deal.ProducerName,
		BuyerUID:              deal.BuyerUID,
		BuyerName:             deal.BuyerName,
		Feedstock:             deal.Feedstock,
		Tonnes:                terms.Volume,
		PricePerTonne:         terms.PricePerTonne,
		TotalValue:            terms.TotalValue,
		CommissionRate:        terms.CommissionRate,
		CommissionRateDisplay: terms.CommissionRateDisplay,
		CommissionAmount:      terms.CommissionAmount,
		DeliveryMethod:        terms.DeliveryMethod,
		DeliveryDate:          terms.DeliveryDate,
		Status:                models.TransactionAgreed,
		CreatedAt:             now,
	}
}

// LedgerRow is the ledger projection of a transaction.
func LedgerRow(tx *models.Transaction, now time.Time) models.LedgerRecord {
	return models.LedgerRecord{
		{Name: "Transaction ID", Value: fmt.Sprintf("BM-%d", now.UnixMilli())},
		{Name: "Producer Name", Value: tx.ProducerName},
		{Name: "Buyer Name", Value: tx.BuyerName},
		{Name: "Feedstock", Value: tx.Feedstock},
		{Name: "Tonnes", Value: tx.Tonnes},
		{Name: "Price Per Tonne", Value: tx.PricePerTonne},
		{Name: "Transaction Value", Value: tx.TotalValue},
		{Name: "Commission Rate", Value: tx.CommissionRateDisplay},
		{Name: "Commission Amount", Value: tx.CommissionAmount},
		{Name: "Delivery Method", Value: tx.DeliveryMethod},
		{Name: "Status", Value: string(tx.Status)},
		{Name: "Date Initiated", Value: now.Format("2006-01-02")},
	}
}
