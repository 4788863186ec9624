package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/config"
	"go.uber.org/zap"
)

// Board column ids the contact form is mapped onto.
const (
	leadPhoneColumn    = "phone"
	leadEmailColumn    = "email"
	leadBusinessColumn = "text"
	leadRequestColumn  = "long_text"
	mondayAPIVersion   = "2024-10"
)

const createItemMutation = `mutation ($boardId: ID!, $itemName: String!, $columnValues: JSON!) {
  create_item (board_id: $boardId, item_name: $itemName, column_values: $columnValues) { id }
}`

const boardColumnsQuery = `query ($boardIds: [ID!]) {
  boards (ids: $boardIds) { columns { id title type } }
}`

// LeadInput is the contact form.
type LeadInput struct {
	FullName string
	Phone    string
	Email    string
	Business string
	Request  string
}

// CRMColumn describes one board column.
type CRMColumn struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	ErrorMessage string `json:"error_message"`
	ErrorCode    string `json:"error_code"`
}

func (r graphQLResponse) failure() string {
	messages := make([]string, 0, len(r.Errors)+1)
	for _, e := range r.Errors {
		if msg := strings.TrimSpace(e.Message); msg != "" {
			messages = append(messages, msg)
		}
	}
	if msg := strings.TrimSpace(r.ErrorMessage); msg != "" {
		messages = append(messages, msg)
	}
	if len(messages) == 0 && len(r.Errors) > 0 {
		messages = append(messages, "unknown error")
	}
	return strings.Join(messages, "; ")
}

// LeadService forwards contact-form submissions to the CRM board.
type LeadService struct {
	cfg    config.CRMConfig
	http   httpDoer
	logger *zap.Logger
}

// NewLeadService creates a LeadService. Missing credentials are reported per call.
func NewLeadService(cfg config.CRMConfig, logger *zap.Logger) *LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{
		cfg:    cfg,
		http:   &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}
}

func (s *LeadService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 20 * time.Second}
		return
	}
	s.http = client
}

// Submit creates one board item for the lead and returns its id. It never retries.
func (s *LeadService) Submit(ctx context.Context, input LeadInput) (string, error) {
	if err := s.checkConfig(); err != nil {
		return "", err
	}

	lead := LeadInput{
		FullName: strings.TrimSpace(input.FullName),
		Phone:    strings.TrimSpace(input.Phone),
		Email:    strings.TrimSpace(input.Email),
		Business: strings.TrimSpace(input.Business),
		Request:  strings.TrimSpace(input.Request),
	}
	if lead.FullName == "" {
		return "", apperr.Validation("fullName is required")
	}
	if lead.Email == "" && lead.Phone == "" {
		return "", apperr.Validation("email or phone is required")
	}

	columns := map[string]any{
		leadBusinessColumn: lead.Business,
		leadRequestColumn:  map[string]string{"text": lead.Request},
	}
	if lead.Phone != "" {
		columns[leadPhoneColumn] = map[string]string{"phone": lead.Phone, "countryShortName": "US"}
	}
	if lead.Email != "" {
		columns[leadEmailColumn] = map[string]string{"email": lead.Email, "text": lead.Email}
	}
	encodedColumns, err := json.Marshal(columns)
	if err != nil {
		return "", apperr.Submit("encode column values failed", err)
	}

	var data struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	err = s.do(ctx, graphQLRequest{
		Query: createItemMutation,
		Variables: map[string]any{
			"boardId":      s.cfg.BoardID,
			"itemName":     lead.FullName,
			"columnValues": string(encodedColumns),
		},
	}, &data)
	if err != nil {
		return "", apperr.Submit("lead submission failed", err)
	}

	s.logger.Info("lead forwarded", zap.String("item_id", data.CreateItem.ID))
	return data.CreateItem.ID, nil
}

// Columns lists the configured board's columns.
func (s *LeadService) Columns(ctx context.Context) ([]CRMColumn, error) {
	if err := s.checkConfig(); err != nil {
		return nil, err
	}

	var data struct {
		Boards []struct {
			Columns []CRMColumn `json:"columns"`
		} `json:"boards"`
	}
	err := s.do(ctx, graphQLRequest{
		Query:     boardColumnsQuery,
		Variables: map[string]any{"boardIds": []string{s.cfg.BoardID}},
	}, &data)
	if err != nil {
		return nil, apperr.Upstream("board column lookup failed", err)
	}
	if len(data.Boards) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("board %s not found", s.cfg.BoardID))
	}
	return data.Boards[0].Columns, nil
}

// Configured reports whether the CRM token and board id are set.
func (s *LeadService) Configured() bool {
	return s.checkConfig() == nil
}

func (s *LeadService) checkConfig() error {
	if strings.TrimSpace(s.cfg.Token) == "" || strings.TrimSpace(s.cfg.BoardID) == "" {
		return apperr.Config("CRM token and board id must be configured")
	}
	return nil
}

func (s *LeadService) do(ctx context.Context, payload graphQLRequest, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(s.cfg.APIURL, "/") + "/v2"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", s.cfg.Token)
	req.Header.Set("API-Version", mondayAPIVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("call CRM: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read CRM response: %w", err)
	}

	var parsed graphQLResponse
	decodeErr := json.Unmarshal(respBody, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if decodeErr == nil {
			msg = parsed.failure()
		}
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return fmt.Errorf("CRM returned %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode CRM response: %w", decodeErr)
	}
	if msg := parsed.failure(); msg != "" {
		return fmt.Errorf("CRM rejected request: %s", msg)
	}
	if out != nil && len(parsed.Data) > 0 {
		if err := json.Unmarshal(parsed.Data, out); err != nil {
			return fmt.Errorf("decode CRM data: %w", err)
		}
	}
	return nil
}
