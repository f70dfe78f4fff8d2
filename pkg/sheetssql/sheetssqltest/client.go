// Package sheetssqltest provides an in-memory SheetsClient for tests.
package sheetssqltest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Client keeps every sheet as a slice of rows keyed by title
type Client struct {
	mu     sync.Mutex
	sheets map[string][][]interface{}
	ids    map[int64]string
	nextID int64

	// Failure injection; a non-nil error fails every call of that kind
	GetErr    error
	AppendErr error
	UpdateErr error
	CreateErr error

	AppendCalls int
	UpdateCalls int
}

// NewClient returns an empty spreadsheet
func NewClient() *Client {
	return &Client{
		sheets: make(map[string][][]interface{}),
		ids:    make(map[int64]string),
		nextID: 100,
	}
}

// AddSheet creates a sheet with the given rows and returns its sheet ID
func (c *Client) AddSheet(title string, rows ...[]interface{}) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addSheet(title, rows)
}

func (c *Client) addSheet(title string, rows [][]interface{}) int64 {
	c.nextID++
	c.ids[c.nextID] = title
	c.sheets[title] = copyRows(rows)
	return c.nextID
}

// Rows returns a copy of the rows of a sheet
func (c *Client) Rows(title string) [][]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyRows(c.sheets[title])
}

// Titles returns the titles of all sheets
func (c *Client) Titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	titles := make([]string, 0, len(c.sheets))
	for title := range c.sheets {
		titles = append(titles, title)
	}
	return titles
}

func (c *Client) GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}

	title, ref := splitRange(sheetRange)
	rows, ok := c.sheets[title]
	if !ok {
		return nil, fmt.Errorf("unable to parse range: %s", sheetRange)
	}
	if ref == "1:1" {
		if len(rows) == 0 {
			return nil, nil
		}
		return copyRows(rows[:1]), nil
	}
	return copyRows(rows), nil
}

func (c *Client) AppendRows(ctx context.Context, spreadsheetID, sheetRange string, values [][]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AppendCalls++
	if c.AppendErr != nil {
		return "", c.AppendErr
	}

	title, _ := splitRange(sheetRange)
	rows, ok := c.sheets[title]
	if !ok {
		return "", fmt.Errorf("unable to parse range: %s", sheetRange)
	}

	start := len(rows) + 1
	c.sheets[title] = append(rows, copyRows(values)...)
	return fmt.Sprintf("'%s'!A%d:Z%d", title, start, start+len(values)-1), nil
}

func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, sheetRange string, values [][]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UpdateCalls++
	if c.UpdateErr != nil {
		return c.UpdateErr
	}

	title, ref := splitRange(sheetRange)
	rows, ok := c.sheets[title]
	if !ok {
		return fmt.Errorf("unable to parse range: %s", sheetRange)
	}

	col, row, err := parseCell(ref)
	if err != nil {
		return err
	}
	for len(rows) < row-1+len(values) {
		rows = append(rows, []interface{}{})
	}
	for r, vals := range values {
		target := rows[row-1+r]
		for len(target) < col+len(vals) {
			target = append(target, "")
		}
		copy(target[col:], vals)
		rows[row-1+r] = target
	}
	c.sheets[title] = rows
	return nil
}

func (c *Client) CreateSheet(ctx context.Context, spreadsheetID, sheetTitle string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CreateErr != nil {
		return 0, c.CreateErr
	}
	if _, exists := c.sheets[sheetTitle]; exists {
		return 0, fmt.Errorf("a sheet with the name %q already exists", sheetTitle)
	}
	return c.addSheet(sheetTitle, nil), nil
}

func (c *Client) SheetTitles(ctx context.Context, spreadsheetID string) (map[int64]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	titles := make(map[int64]string, len(c.ids))
	for id, title := range c.ids {
		titles[id] = title
	}
	return titles, nil
}

// splitRange splits "'title'!ref" into its unquoted title and reference
func splitRange(a1 string) (string, string) {
	if strings.HasPrefix(a1, "'") {
		end := strings.LastIndex(a1, "'")
		title := strings.ReplaceAll(a1[1:end], "''", "'")
		return title, strings.TrimPrefix(a1[end+1:], "!")
	}
	if idx := strings.Index(a1, "!"); idx >= 0 {
		return a1[:idx], a1[idx+1:]
	}
	return a1, ""
}

// parseCell converts "C5" into a zero-based column and a 1-based row
func parseCell(ref string) (int, int, error) {
	i := 0
	col := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	row, err := strconv.Atoi(ref[i:])
	if i == 0 || err != nil {
		return 0, 0, fmt.Errorf("unsupported cell reference %q", ref)
	}
	return col - 1, row, nil
}

func copyRows(rows [][]interface{}) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = append([]interface{}(nil), row...)
	}
	return out
}
