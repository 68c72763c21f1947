// Package sheets wraps the Google Sheets v4 API with the three calls the
// sheet sync needs: spreadsheet metadata, batchUpdate and values update.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// ValueInputOption controls how written cells are parsed by Sheets.
const ValueInputOption = "USER_ENTERED"

type Client struct {
	svc *gsheets.Service
}

// NewClient creates a Sheets client. Credentials come from opts or from
// Application Default Credentials.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// SheetIDs returns the sheet id of every tab keyed by title.
func (c *Client) SheetIDs(ctx context.Context, spreadsheetID string) (map[string]int64, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields(googleapi.Field("sheets.properties(sheetId,title)")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", spreadsheetID, err)
	}

	ids := make(map[string]int64, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		ids[sh.Properties.Title] = sh.Properties.SheetId
	}
	return ids, nil
}

func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*gsheets.Request) (*gsheets.BatchUpdateSpreadsheetResponse, error) {
	resp, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to batch update spreadsheet %s: %w", spreadsheetID, err)
	}
	return resp, nil
}

func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, a1Range string, rows [][]interface{}) error {
	_, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, a1Range, &gsheets.ValueRange{
		Values: rows,
	}).ValueInputOption(ValueInputOption).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s in spreadsheet %s: %w", a1Range, spreadsheetID, err)
	}
	return nil
}

// A1 builds a range for a cell of a titled sheet, quoting the title.
func A1(title, cell string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cell
}

// InsertRows opens count blank rows starting at the zero-based row index start.
func InsertRows(sheetID int64, start, count int64) *gsheets.Request {
	return &gsheets.Request{
		InsertDimension: &gsheets.InsertDimensionRequest{
			Range: &gsheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "ROWS",
				StartIndex: start,
				EndIndex:   start + count,
				// Sheet ids and start indexes of 0 are meaningful.
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
			InheritFromBefore: false,
		},
	}
}

// AddSheet creates a tab with the given title.
func AddSheet(title string) *gsheets.Request {
	return &gsheets.Request{
		AddSheet: &gsheets.AddSheetRequest{
			Properties: &gsheets.SheetProperties{Title: title},
		},
	}
}

// AddedSheetID extracts the id of the sheet created by the first AddSheet reply.
func AddedSheetID(resp *gsheets.BatchUpdateSpreadsheetResponse) (int64, error) {
	if resp == nil {
		return 0, fmt.Errorf("empty batch update response")
	}
	for _, r := range resp.Replies {
		if r != nil && r.AddSheet != nil && r.AddSheet.Properties != nil {
			return r.AddSheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("batch update response has no addSheet reply")
}
