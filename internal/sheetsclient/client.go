// Package sheetsclient issues single read/append calls against a spreadsheet
// range and maps the JSON payloads to rows of strings.
package sheetsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/sheets/v4"
)

// ValueInputUserEntered makes Sheets parse appended values as if typed in the UI
// (formulas, dates, numbers).
const ValueInputUserEntered = "USER_ENTERED"

var errNilService = errors.New("sheets client requires an authorized service")

type Client struct {
	svc *sheets.Service
}

// AppendResult describes where appended values landed.
type AppendResult struct {
	UpdatedRange string `json:"updatedRange"`
	UpdatedRows  int64  `json:"updatedRows"`
	UpdatedCells int64  `json:"updatedCells"`
}

func New(svc *sheets.Service) (*Client, error) {
	if svc == nil {
		return nil, errNilService
	}
	return &Client{svc: svc}, nil
}

// ReadRange fetches one value range. An empty result is not an error.
func (c *Client) ReadRange(ctx context.Context, spreadsheetID, rangeSpec string) ([][]string, error) {
	if err := validateTarget(spreadsheetID, rangeSpec); err != nil {
		return nil, err
	}
	slog.Debug("read range", "spreadsheet", spreadsheetID, "range", rangeSpec)

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, newRemoteError(err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cellString(cell)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// AppendRow appends values as one row after the table found in rangeSpec.
func (c *Client) AppendRow(ctx context.Context, spreadsheetID, rangeSpec string, values []string) (AppendResult, error) {
	if err := validateTarget(spreadsheetID, rangeSpec); err != nil {
		return AppendResult{}, err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	slog.Debug("append row", "spreadsheet", spreadsheetID, "range", rangeSpec, "cells", len(row))

	resp, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, rangeSpec, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption(ValueInputUserEntered).Context(ctx).Do()
	if err != nil {
		return AppendResult{}, newRemoteError(err)
	}

	var out AppendResult
	if resp.Updates != nil {
		out.UpdatedRange = resp.Updates.UpdatedRange
		out.UpdatedRows = resp.Updates.UpdatedRows
		out.UpdatedCells = resp.Updates.UpdatedCells
	}
	return out, nil
}

// validateTarget only rejects missing values; Sheets judges the range itself
// (cells, whole sheets, named ranges).
func validateTarget(spreadsheetID, rangeSpec string) error {
	if strings.TrimSpace(spreadsheetID) == "" {
		return errors.New("empty spreadsheet ID")
	}
	if strings.TrimSpace(rangeSpec) == "" {
		return errors.New("empty range")
	}
	return nil
}

func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
