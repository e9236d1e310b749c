package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type Writer interface {
	Write(ctx context.Context, header []string, rows [][]string) error
}

type CSVWriter struct {
	w io.Writer
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

func (c *CSVWriter) Write(ctx context.Context, header []string, rows [][]string) error {
	cw := csv.NewWriter(c.w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// valuesAPI is the part of the Sheets values service the writer needs.
type valuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
}

type sheetsValues struct {
	svc *sheets.Service
}

func (s sheetsValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s sheetsValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// SheetsWriter replaces the contents of one sheet with the export.
type SheetsWriter struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string
}

type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

func NewSheetsWriter(ctx context.Context, cfg SheetsConfig) (*SheetsWriter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("missing spreadsheet id")
	}

	credentials := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	if len(credentials) == 0 && cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = data
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if len(credentials) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentials))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newSheetsWriter(sheetsValues{svc: svc}, cfg.SpreadsheetID, cfg.SheetName), nil
}

func newSheetsWriter(values valuesAPI, spreadsheetID, sheetName string) *SheetsWriter {
	if sheetName == "" {
		sheetName = "Expenses"
	}
	return &SheetsWriter{values: values, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func (s *SheetsWriter) Write(ctx context.Context, header []string, rows [][]string) error {
	rng := fmt.Sprintf("%s!A:Z", s.sheetName)
	if err := s.values.Clear(ctx, s.spreadsheetID, rng); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toInterfaces(header))
	for _, row := range rows {
		values = append(values, toInterfaces(row))
	}

	if err := s.values.Update(ctx, s.spreadsheetID, fmt.Sprintf("%s!A1", s.sheetName), values); err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}
	return nil
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
