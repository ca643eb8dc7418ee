package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

const handoffTag = "crm_handoff"

var ErrNotConfigured = errors.New("kommo not configured")

type Client struct {
	apiToken   string
	baseURL    string
	statusID   int
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiToken string, statusID int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiToken:   apiToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		statusID:   statusID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// StageChanged mirrors a prospect into Kommo once it reaches technical
// handoff. Other transitions are ignored.
func (c *Client) StageChanged(ctx context.Context, p entity.Prospect, fromStage int, actor entity.Actor) error {
	if p.CurrentStage != entity.LastStage || p.IsLost {
		return nil
	}
	input := CreateLeadInput{
		ProspectID:  p.ID,
		CompanyName: p.CompanyName,
		ContactName: p.ContactName,
		Price:       int(p.Value()),
		Tags:        p.Tags,
	}
	if p.ContactEmail != nil {
		input.Email = *p.ContactEmail
	}
	if p.ContactPhone != nil {
		input.Phone = *p.ContactPhone
	}
	_, err := c.CreateLead(ctx, input)
	return err
}

func (c *Client) CreateLead(ctx context.Context, input CreateLeadInput) (int, error) {
	if c.apiToken == "" {
		return 0, ErrNotConfigured
	}

	contactID, err := c.findOrCreateContact(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("failed to find or create contact: %w", err)
	}

	tags := []tag{{Name: handoffTag}}
	for _, t := range input.Tags {
		tags = append(tags, tag{Name: t})
	}
	lead := []leadRequest{{
		Name:     input.CompanyName,
		Price:    input.Price,
		StatusID: c.statusID,
		Embedded: leadEmbedded{Tags: tags, Contacts: []ref{{ID: contactID}}},
	}}

	var result embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/leads", lead, &result); err != nil {
		return 0, fmt.Errorf("failed to create lead: %w", err)
	}
	if len(result.Embedded.Leads) == 0 {
		return 0, errors.New("kommo returned no lead")
	}

	leadID := result.Embedded.Leads[0].ID
	c.logger.Info("kommo lead created",
		zap.Int("lead_id", leadID),
		zap.String("prospect_id", input.ProspectID),
		zap.String("company", input.CompanyName),
	)
	return leadID, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, input CreateLeadInput) (int, error) {
	for _, query := range []string{input.Email, input.Phone} {
		if query == "" {
			continue
		}
		id, err := c.findContact(ctx, query)
		if err == nil && id > 0 {
			return id, nil
		}
	}
	return c.createContact(ctx, input)
}

func (c *Client) findContact(ctx context.Context, query string) (int, error) {
	var result embeddedResponse
	if err := c.do(ctx, http.MethodGet, "/contacts?query="+url.QueryEscape(query), nil, &result); err != nil {
		return 0, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, errors.New("contact not found")
	}
	return result.Embedded.Contacts[0].ID, nil
}

func (c *Client) createContact(ctx context.Context, input CreateLeadInput) (int, error) {
	contact := contactRequest{Name: input.ContactName}
	if input.Phone != "" {
		contact.CustomFields = append(contact.CustomFields, customField{
			FieldCode: "PHONE",
			Values:    []fieldValue{{Value: input.Phone, EnumCode: "WORK"}},
		})
	}
	if input.Email != "" {
		contact.CustomFields = append(contact.CustomFields, customField{
			FieldCode: "EMAIL",
			Values:    []fieldValue{{Value: input.Email, EnumCode: "WORK"}},
		})
	}

	var result embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/contacts", []contactRequest{contact}, &result); err != nil {
		return 0, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, errors.New("kommo returned no contact")
	}
	return result.Embedded.Contacts[0].ID, nil
}

// do sends a JSON request and decodes a 200/201 response into out. Kommo
// answers an empty search with 204.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("kommo %s %s: %d - %s", method, path, resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}
