package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/dealroom/internal/config"
	"github.com/mamadbah2/dealroom/internal/domain/models"
)

// valuesAPI is the subset of the Sheets values API the sink uses.
type valuesAPI interface {
	Append(ctx context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error
	Get(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// LedgerSink appends transaction summaries as rows of a Google Sheet, one
// tab per ledger table.
type LedgerSink struct {
	values        valuesAPI
	spreadsheetID string
	logger        *zap.Logger
}

// NewLedgerSink builds a Google Sheets backed ledger sink.
func NewLedgerSink(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*LedgerSink, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return newLedgerSink(&serviceValues{service: service}, cfg.SpreadsheetID, logger), nil
}

func newLedgerSink(values valuesAPI, spreadsheetID string, logger *zap.Logger) *LedgerSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerSink{values: values, spreadsheetID: spreadsheetID, logger: logger}
}

// Append writes record as a new row of table. The header row is written first
// when the tab is empty.
func (s *LedgerSink) Append(ctx context.Context, table string, record models.LedgerRecord) error {
	if table == "" {
		return fmt.Errorf("table must not be empty")
	}
	if len(record) == 0 {
		return nil
	}

	rows := [][]interface{}{record.Values()}

	header, err := s.values.Get(ctx, s.spreadsheetID, headerRange(table, len(record)))
	if err != nil {
		return fmt.Errorf("read header of %s: %w", table, err)
	}
	if len(header) == 0 {
		rows = append([][]interface{}{headerRow(record)}, rows...)
	}

	sheetRange := rowRange(table, len(record))
	if err := s.values.Append(ctx, s.spreadsheetID, sheetRange, rows); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	s.logger.Debug("ledger row appended to sheet", zap.String("range", sheetRange))
	return nil
}

func headerRow(record models.LedgerRecord) []interface{} {
	header := make([]interface{}, 0, len(record))
	for _, f := range record {
		header = append(header, f.Name)
	}
	return header
}

func rowRange(table string, columns int) string {
	return fmt.Sprintf("%s!A:%s", table, columnName(columns))
}

func headerRange(table string, columns int) string {
	return fmt.Sprintf("%s!A1:%s1", table, columnName(columns))
}

// columnName converts a 1-based column index into its A1 letters.
func columnName(n int) string {
	if n < 1 {
		n = 1
	}
	var name []byte
	for n > 0 {
		n--
		name = append([]byte{byte('A' + n%26)}, name...)
		n /= 26
	}
	return string(name)
}

type serviceValues struct {
	service *sheetsapi.Service
}

func (v *serviceValues) Append(ctx context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error {
	payload := &sheetsapi.ValueRange{Values: rows}
	_, err := v.service.Spreadsheets.Values.Append(spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (v *serviceValues) Get(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error) {
	resp, err := v.service.Spreadsheets.Values.Get(spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
