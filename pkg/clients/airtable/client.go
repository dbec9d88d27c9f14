package airtable

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/dealroom/internal/config"
	"github.com/mamadbah2/dealroom/internal/domain/models"
)

// Client exposes the Airtable operations used by the application.
type Client interface {
	CreateRecord(ctx context.Context, table string, fields map[string]any) (*CreateRecordResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	baseID     string
}

// NewClient builds an Airtable API client using the provided configuration values.
func NewClient(cfg config.AirtableConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/v0", base)).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		baseID:     cfg.BaseID,
	}
}

// CreateRecordResponse mirrors the successful response from Airtable.
type CreateRecordResponse struct {
	Records []struct {
		ID          string `json:"id"`
		CreatedTime string `json:"createdTime"`
	} `json:"records"`
}

// apiError represents an Airtable error payload.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateRecord inserts one record into table.
func (c *APIClient) CreateRecord(ctx context.Context, table string, fields map[string]any) (*CreateRecordResponse, error) {
	payload := map[string]any{
		"records":  []map[string]any{{"fields": fields}},
		"typecast": true,
	}

	result := new(CreateRecordResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("%s/%s", c.baseID, url.PathEscape(table)))
	if err != nil {
		return nil, fmt.Errorf("create airtable record: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error.Message
		if message == "" {
			message = apiErr.Error.Type
		}
		return nil, fmt.Errorf("airtable api error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return result, nil
}

// LedgerSink adapts a Client to the transaction ledger.
type LedgerSink struct {
	client Client
}

// NewLedgerSink wraps client as a ledger sink.
func NewLedgerSink(client Client) *LedgerSink {
	return &LedgerSink{client: client}
}

// Append creates one Airtable record from record.
func (s *LedgerSink) Append(ctx context.Context, table string, record models.LedgerRecord) error {
	_, err := s.client.CreateRecord(ctx, table, record.Map())
	return err
}
