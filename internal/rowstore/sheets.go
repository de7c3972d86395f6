package rowstore

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsStore implements Store on a single worksheet of a Google
// spreadsheet, using a service account for authentication.
type SheetsStore struct {
	service       *sheets.Service
	spreadsheetID string
	worksheet     string
}

func NewSheetsStore(ctx context.Context, credentialsFile, spreadsheetID, worksheet string) (*SheetsStore, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsStore{
		service:       service,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
	}, nil
}

func (s *SheetsStore) ReadColumn(ctx context.Context, column int) ([]string, error) {
	letter := columnLetter(column)
	readRange := fmt.Sprintf("%s!%s:%s", s.worksheet, letter, letter)

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read column %d: %w", column, err)
	}

	values := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 || row[0] == nil {
			values = append(values, "")
			continue
		}
		values = append(values, fmt.Sprintf("%v", row[0]))
	}

	return values, nil
}

func (s *SheetsStore) WriteCell(ctx context.Context, row, column int, value string) error {
	cellRange := fmt.Sprintf("%s!%s%d", s.worksheet, columnLetter(column), row)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}

	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, cellRange, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write cell %s: %w", cellRange, err)
	}

	return nil
}

func (s *SheetsStore) AppendRow(ctx context.Context, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{cells},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.worksheet+"!A1", valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	return nil
}

// columnLetter converts a 1-based column index to A1 notation (1 -> A,
// 27 -> AA).
func columnLetter(column int) string {
	letters := ""
	for column > 0 {
		column--
		letters = string(rune('A'+column%26)) + letters
		column /= 26
	}
	return letters
}
