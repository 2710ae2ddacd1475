// Package gdocs adapts the Google Drive and Sheets APIs to the review
// workflow's document store.
package gdocs

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/devfactory/reviewmaker/internal/config"
	"github.com/devfactory/reviewmaker/internal/logging"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Client handles interactions with Google Drive and Sheets.
type Client struct {
	drive  *drive.Service
	sheets *sheets.Service
}

// NewClient creates Drive and Sheets services from the configured
// credentials file.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	opts := []option.ClientOption{
		option.WithCredentialsFile(cfg.Google.CredentialsFile),
		option.WithScopes(drive.DriveScope, sheets.SpreadsheetsScope),
	}

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	logging.Debug("google services configured", "credentials_file", cfg.Google.CredentialsFile)

	return &Client{drive: driveService, sheets: sheetsService}, nil
}

// FindFolders returns the ids of non-trashed folders with the given
// name under the given parent.
func (c *Client) FindFolders(ctx context.Context, name, parentID string) ([]string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escapeQueryValue(name), parentID, folderMimeType)

	list, err := c.drive.Files.List().Q(query).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list folders named %q: %w", name, err)
	}

	ids := make([]string, 0, len(list.Files))
	for _, file := range list.Files {
		ids = append(ids, file.Id)
	}
	return ids, nil
}

// CreateFolder creates a folder under the given parent and returns its id.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	folder := &drive.File{
		MimeType: folderMimeType,
		Name:     name,
		Parents:  []string{parentID},
	}

	created, err := c.drive.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	return created.Id, nil
}

// CopySpreadsheet copies the template document into folderID under the
// given name and returns the new document id.
func (c *Client) CopySpreadsheet(ctx context.Context, templateID, name, folderID string) (string, error) {
	file := &drive.File{
		Name:                         name,
		Parents:                      []string{folderID},
		CopyRequiresWriterPermission: true,
	}

	copied, err := c.drive.Files.Copy(templateID, file).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to copy template %s: %w", templateID, err)
	}
	return copied.Id, nil
}

// ReadRange reads cell values from an A1-notation range as strings.
func (c *Client) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}

	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				continue
			}
			values[i][j] = fmt.Sprint(cell)
		}
	}
	return values, nil
}

// WriteRange writes cell values into an A1-notation range with RAW
// input semantics (no formula interpretation).
func (c *Client) WriteRange(ctx context.Context, spreadsheetID, writeRange string, values [][]string) error {
	valueRange := &sheets.ValueRange{
		Values: make([][]interface{}, len(values)),
	}
	for i, row := range values {
		valueRange.Values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			valueRange.Values[i][j] = cell
		}
	}

	_, err := c.sheets.Spreadsheets.Values.Update(spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write range %s: %w", writeRange, err)
	}
	return nil
}

// escapeQueryValue escapes a string literal for a Drive search query.
func escapeQueryValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
