// Package jira adapts the JIRA REST API to the review workflow's
// ticket gateway.
package jira

import (
	"context"
	"fmt"
	"strings"

	jira "github.com/andygrunwald/go-jira"

	"github.com/devfactory/reviewmaker/internal/config"
	"github.com/devfactory/reviewmaker/internal/logging"
	"github.com/devfactory/reviewmaker/pkg/models"
)

// Custom field names consumed by the review workflow. They are resolved
// to field ids through the JIRA field catalog at first use.
const (
	fieldPeerReviewer = "Peer reviewer"
	fieldPrURL        = "Code Review Ticket URL"
	fieldReportLink   = "QB Checklist Report"
)

// Client handles interactions with the JIRA API.
type Client struct {
	client *jira.Client

	// fieldIDs caches the custom field name -> id mapping for the
	// process lifetime.
	fieldIDs map[string]string
}

// NewClient creates a new JIRA client from configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.Jira.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	logging.Debug("jira client configured",
		"url", cfg.Jira.URL,
		"username", cfg.Jira.Username,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	return &Client{client: client}, nil
}

// Myself returns the authenticated reviewer's identity.
func (c *Client) Myself(ctx context.Context) (models.User, error) {
	user, _, err := c.client.User.GetSelfWithContext(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to fetch jira user: %w", err)
	}

	username := user.Name
	if username == "" {
		username = user.AccountID
	}
	return models.User{Username: username, DisplayName: user.DisplayName}, nil
}

// GetTicket fetches a ticket by key, including the custom fields the
// review workflow reads.
func (c *Client) GetTicket(ctx context.Context, key string) (*models.Ticket, error) {
	issue, _, err := c.client.Issue.GetWithContext(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket %s: %w", key, err)
	}

	ticket := &models.Ticket{
		Key:     issue.Key,
		Summary: issue.Fields.Summary,
		Status:  issue.Fields.Status.Name,
		Type:    issue.Fields.Type.Name,
	}
	if issue.Fields.Assignee != nil {
		ticket.Assignee = issue.Fields.Assignee.Name
		ticket.AssigneeDisplay = issue.Fields.Assignee.DisplayName
		if ticket.Assignee == "" {
			ticket.Assignee = issue.Fields.Assignee.AccountID
		}
	}

	peer, err := c.customField(ctx, issue, fieldPeerReviewer)
	if err != nil {
		return nil, err
	}
	ticket.PeerReviewer = peer

	prURL, err := c.customField(ctx, issue, fieldPrURL)
	if err != nil {
		return nil, err
	}
	ticket.PrURL = prURL

	return ticket, nil
}

// AssignPeerReviewer writes the "Peer reviewer" custom field.
func (c *Client) AssignPeerReviewer(ctx context.Context, key, username string) error {
	id, err := c.fieldID(ctx, fieldPeerReviewer)
	if err != nil {
		return err
	}

	// The field is a user picker; the REST API expects an object.
	payload := map[string]interface{}{
		"fields": map[string]interface{}{
			id: map[string]interface{}{"name": username},
		},
	}
	if _, err := c.client.Issue.UpdateIssueWithContext(ctx, key, payload); err != nil {
		return fmt.Errorf("failed to set peer reviewer on %s: %w", key, err)
	}
	return nil
}

// SetReportLink writes the "QB Checklist Report" custom field.
func (c *Client) SetReportLink(ctx context.Context, key, link string) error {
	id, err := c.fieldID(ctx, fieldReportLink)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"fields": map[string]interface{}{
			id: link,
		},
	}
	if _, err := c.client.Issue.UpdateIssueWithContext(ctx, key, payload); err != nil {
		return fmt.Errorf("failed to set report link on %s: %w", key, err)
	}
	return nil
}

// Transition executes a named workflow transition on a ticket. The
// transition must be available from the ticket's current status.
func (c *Client) Transition(ctx context.Context, key, name string) error {
	transitions, _, err := c.client.Issue.GetTransitionsWithContext(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to list transitions for %s: %w", key, err)
	}

	for _, transition := range transitions {
		if strings.EqualFold(transition.Name, name) {
			if _, err := c.client.Issue.DoTransitionWithContext(ctx, key, transition.ID); err != nil {
				return fmt.Errorf("failed to execute transition %q on %s: %w", name, key, err)
			}
			return nil
		}
	}
	return fmt.Errorf("transition %q is not available for %s", name, key)
}

// fieldID resolves a custom field name to its id, loading the field
// catalog on first use.
func (c *Client) fieldID(ctx context.Context, name string) (string, error) {
	if c.fieldIDs == nil {
		fields, _, err := c.client.Field.GetListWithContext(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load jira field catalog: %w", err)
		}
		c.fieldIDs = make(map[string]string, len(fields))
		for _, field := range fields {
			c.fieldIDs[field.Name] = field.ID
		}
	}

	id, ok := c.fieldIDs[name]
	if !ok {
		return "", fmt.Errorf("jira field %q not found", name)
	}
	return id, nil
}

// customField reads a custom field value from an issue by display name.
func (c *Client) customField(ctx context.Context, issue *jira.Issue, name string) (string, error) {
	id, err := c.fieldID(ctx, name)
	if err != nil {
		return "", err
	}
	if issue.Fields == nil || issue.Fields.Unknowns == nil {
		return "", nil
	}
	return flattenFieldValue(issue.Fields.Unknowns[id]), nil
}

// flattenFieldValue extracts the string value from the shapes JIRA uses
// for custom fields: plain strings, user objects, option objects, and
// single-element arrays of those.
func flattenFieldValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}:
		for _, k := range []string{"name", "value", "displayName"} {
			if s, ok := v[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	case []interface{}:
		if len(v) == 0 {
			return ""
		}
		return flattenFieldValue(v[0])
	default:
		return fmt.Sprintf("%v", v)
	}
}
