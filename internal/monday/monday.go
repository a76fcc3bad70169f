// Package monday creates intake items on a Monday.com board through its
// GraphQL API.
package monday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/ashureev/biabot/internal/domain"
)

// DefaultAPIURL is the public Monday.com GraphQL endpoint.
const DefaultAPIURL = "https://api.monday.com/v2"

// ErrUpstream wraps failures reported by the Monday API.
var ErrUpstream = errors.New("monday api error")

// Config holds board integration settings.
type Config struct {
	APIURL    string
	APIToken  string
	BoardID   string
	MockMode  bool
	ColumnMap ColumnMap
	Timeout   time.Duration
}

// ColumnMap maps logical intake fields to board column ids.
type ColumnMap map[string]string

// DefaultColumnMap returns the column ids used when none are configured.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		"status":       "status",
		"client":       "text_client",
		"client_code":  "text_code",
		"service_type": "text_service",
		"audience":     "text_audience",
		"due_date":     "date_due",
		"urgency":      "text_urgency",
		"approver":     "text_approver",
		"summary":      "long_summary",
		"links":        "long_links",
	}
}

// ParseColumnMap reads a JSON object of column overrides on top of the
// defaults. Empty input yields the defaults.
func ParseColumnMap(raw string) (ColumnMap, error) {
	columns := DefaultColumnMap()
	if strings.TrimSpace(raw) == "" {
		return columns, nil
	}
	var overrides map[string]string
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return columns, fmt.Errorf("parse column map: %w", err)
	}
	for k, v := range overrides {
		if v = strings.TrimSpace(v); v != "" {
			columns[k] = v
		}
	}
	return columns, nil
}

// Client talks to the Monday GraphQL API, or fabricates mock item ids when
// mock mode is on or credentials are missing.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a board client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ColumnMap == nil {
		cfg.ColumnMap = DefaultColumnMap()
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Content-Type", "application/json")

	return &Client{http: client, cfg: cfg, logger: logger}
}

// MockMode reports whether items are fabricated instead of created.
func (c *Client) MockMode() bool {
	return c.cfg.MockMode || c.cfg.APIToken == "" || c.cfg.BoardID == ""
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *Client) execute(ctx context.Context, token, query string, variables map[string]any, out any) error {
	if variables == nil {
		variables = map[string]any{}
	}
	var result graphQLResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", token).
		SetBody(graphQLRequest{Query: query, Variables: variables}).
		SetResult(&result).
		Post(c.cfg.APIURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: HTTP %d: %s", ErrUpstream, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if len(result.Errors) > 0 {
		msg := result.Errors[0].Message
		if msg == "" {
			msg = "Unknown Monday API error"
		}
		return fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
		}
	}
	return nil
}

// idString accepts ids encoded either as JSON strings or numbers.
func idString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}

const createItemMutation = `
mutation CreateItem($boardId: ID!, $itemName: String!, $columnValues: JSON!) {
  create_item(board_id: $boardId, item_name: $itemName, column_values: $columnValues) {
    id
  }
}`

const createUpdateMutation = `
mutation CreateUpdate($itemId: ID!, $body: String!) {
  create_update(item_id: $itemId, body: $body) {
    id
  }
}`

// ColumnValues renders the board column payload for a submission.
func (c *Client) ColumnValues(profile domain.ClientProfile, sub domain.Submission, summary string) map[string]any {
	cols := c.cfg.ColumnMap
	approver := ""
	if sub.Approver != nil {
		approver = *sub.Approver
	}
	return map[string]any{
		cols["status"]:       map[string]string{"label": "New"},
		cols["client"]:       profile.ClientName,
		cols["client_code"]:  profile.ClientCode,
		cols["service_type"]: sub.ServiceType,
		cols["audience"]:     sub.TargetAudience,
		cols["due_date"]:     map[string]string{"date": sub.DueDate},
		cols["urgency"]:      sub.TimeSensitivity,
		cols["approver"]:     approver,
		cols["summary"]:      summary,
		cols["links"]:        strings.Join(sub.References, "\n"),
	}
}

// CreateItem creates a board item for the submission and posts the summary
// as its first update.
func (c *Client) CreateItem(ctx context.Context, profile domain.ClientProfile, sub domain.Submission, summary string) (domain.BoardResult, error) {
	if c.MockMode() {
		id := "mock-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
		return domain.BoardResult{ItemID: id, BoardID: c.cfg.BoardID, MockMode: true}, nil
	}

	columns, err := json.Marshal(c.ColumnValues(profile, sub, summary))
	if err != nil {
		return domain.BoardResult{}, fmt.Errorf("encode column values: %w", err)
	}
	itemName := sub.ProjectTitle
	if itemName == "" {
		itemName = "Untitled Project"
	}

	var created struct {
		CreateItem struct {
			ID json.RawMessage `json:"id"`
		} `json:"create_item"`
	}
	err = c.execute(ctx, c.cfg.APIToken, createItemMutation, map[string]any{
		"boardId":      c.cfg.BoardID,
		"itemName":     itemName,
		"columnValues": string(columns),
	}, &created)
	if err != nil {
		return domain.BoardResult{}, fmt.Errorf("create item: %w", err)
	}
	itemID := idString(created.CreateItem.ID)
	if itemID == "" {
		return domain.BoardResult{}, fmt.Errorf("create item: %w: response carried no item id", ErrUpstream)
	}

	if err := c.execute(ctx, c.cfg.APIToken, createUpdateMutation, map[string]any{
		"itemId": itemID,
		"body":   summary,
	}, nil); err != nil {
		return domain.BoardResult{}, fmt.Errorf("create update for item %s: %w", itemID, err)
	}

	c.logger.Info("Monday item created", "item_id", itemID, "board_id", c.cfg.BoardID)
	return domain.BoardResult{ItemID: itemID, BoardID: c.cfg.BoardID, MockMode: false}, nil
}

// VerifyRequest overrides the configured credentials for a verification call.
type VerifyRequest struct {
	APIToken  string `json:"api_token,omitempty"`
	BoardID   string `json:"board_id,omitempty"`
	Query     string `json:"query,omitempty"`
	ForceLive bool   `json:"force_live,omitempty"`
}

const verifyBoardQuery = `
query VerifyMonday($boardIds: [ID!]) {
  me {
    id
    name
  }
  boards(ids: $boardIds) {
    id
    name
  }
}`

const verifyMeQuery = `
query VerifyMonday {
  me {
    id
    name
  }
}`

// Verify checks that the token (and optionally the board) is usable. It
// reports problems in the result rather than as an error.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) domain.BoardCheck {
	token := strings.TrimSpace(req.APIToken)
	if token == "" {
		token = strings.TrimSpace(c.cfg.APIToken)
	}
	boardID := strings.TrimSpace(req.BoardID)
	if boardID == "" {
		boardID = strings.TrimSpace(c.cfg.BoardID)
	}
	check := domain.BoardCheck{APIURL: c.cfg.APIURL, BoardID: boardID}

	if !req.ForceLive && req.APIToken == "" && c.cfg.MockMode {
		check.MockMode = true
		check.Error = "MONDAY_MOCK_MODE is enabled. Disable it or set force_live=true to test the real API."
		return check
	}
	if token == "" {
		check.Error = "Monday API token is missing."
		return check
	}

	query, variables := verifyMeQuery, map[string]any{}
	switch {
	case req.Query != "":
		query = req.Query
	case boardID != "":
		query = verifyBoardQuery
		variables["boardIds"] = []string{boardID}
	}

	var data struct {
		Me struct {
			ID   json.RawMessage `json:"id"`
			Name string          `json:"name"`
		} `json:"me"`
		Boards []struct {
			ID   json.RawMessage `json:"id"`
			Name string          `json:"name"`
		} `json:"boards"`
	}
	if err := c.execute(ctx, token, query, variables, &data); err != nil {
		check.Error = strings.TrimPrefix(err.Error(), ErrUpstream.Error()+": ")
		if boardID != "" {
			found := false
			check.BoardFound = &found
		}
		return check
	}

	check.OK = true
	check.AccountID = idString(data.Me.ID)
	check.AccountName = data.Me.Name
	if boardID != "" {
		found := false
		for _, b := range data.Boards {
			if idString(b.ID) == boardID {
				found = true
				check.BoardName = b.Name
				break
			}
		}
		check.BoardFound = &found
	}
	return check
}
