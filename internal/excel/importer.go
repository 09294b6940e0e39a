// Package excel loads curriculum content from Excel or CSV sheets.
package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/metrics"
	"github.com/example/srsbot/pkg/models"
)

// Column headers with a fixed meaning. Every other header is either a facet
// the row's kind asks about or a display detail.
const (
	ColumnKind = "kind"
	ColumnTier = "tier"
	ColumnItem = "item"
)

var ErrMissingColumn = errors.New("missing column")

// ContentWriter persists imported content.
type ContentWriter interface {
	SaveItems(ctx context.Context, items []models.ContentItem) error
	DeclareTier(ctx context.Context, kind models.Kind, tier int) error
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string      // Path to the Excel or CSV file
	SheetName string      // Name of the sheet to import
	Kind      models.Kind // Kind used when the sheet has no kind column
	Separator string      // Splits a cell into several accepted answers
	HeaderRow int         // 1-based row holding the column names
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName: "Sheet1",
		Separator: ",",
		HeaderRow: 1,
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	TiersDeclared  int
	Skipped        int
	Errors         []string
}

// Importer turns sheet rows into content items.
type Importer struct {
	registry *curriculum.Registry
	writer   ContentWriter
}

func NewImporter(registry *curriculum.Registry, writer ContentWriter) *Importer {
	return &Importer{registry: registry, writer: writer}
}

// ImportItems imports content from an Excel or CSV file. Row problems are
// collected in the result; only read and write failures abort the import.
func (im *Importer) ImportItems(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}
	return im.ImportRows(ctx, config, rows)
}

// ImportRows imports already-read rows, header row included.
func (im *Importer) ImportRows(ctx context.Context, config ImportConfig, rows [][]string) (*ImportResult, error) {
	headerRow := max(config.HeaderRow, 1)
	if len(rows) < headerRow {
		return nil, fmt.Errorf("%w: no header row", ErrMissingColumn)
	}
	header := make([]string, len(rows[headerRow-1]))
	for i, h := range rows[headerRow-1] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := columns[h]; !seen && h != "" {
			columns[h] = i
		}
	}
	if _, ok := columns[ColumnItem]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, ColumnItem)
	}
	if _, ok := columns[ColumnTier]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, ColumnTier)
	}
	if _, ok := columns[ColumnKind]; !ok && config.Kind == "" {
		return nil, fmt.Errorf("%w: %q and no default kind", ErrMissingColumn, ColumnKind)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	type tierKey struct {
		kind models.Kind
		tier int
	}
	declared := make(map[tierKey]bool)
	var items []models.ContentItem

	for i := headerRow; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		result.TotalProcessed++

		item, err := im.parseRow(row, header, columns, config)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		key := tierKey{item.Kind, item.Tier}
		if !declared[key] {
			if err := im.writer.DeclareTier(ctx, item.Kind, item.Tier); err != nil {
				return result, fmt.Errorf("declare %s tier %d: %w", item.Kind, item.Tier, err)
			}
			declared[key] = true
			result.TiersDeclared++
		}
		// A row without an item only declares its tier.
		if item.ID == "" {
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		if err := im.writer.SaveItems(ctx, items); err != nil {
			return result, fmt.Errorf("save items: %w", err)
		}
	}
	result.Created = len(items)
	for _, item := range items {
		metrics.ItemsImported.WithLabelValues(string(item.Kind)).Inc()
	}
	return result, nil
}

func (im *Importer) parseRow(row, header []string, columns map[string]int, config ImportConfig) (models.ContentItem, error) {
	kind := models.Kind(strings.ToLower(cell(row, columns, ColumnKind)))
	if kind == "" {
		kind = config.Kind
	}
	spec, err := im.registry.Kind(kind)
	if err != nil {
		return models.ContentItem{}, err
	}

	tier, err := strconv.Atoi(cell(row, columns, ColumnTier))
	if err != nil || tier < 1 {
		return models.ContentItem{}, fmt.Errorf("invalid tier %q", cell(row, columns, ColumnTier))
	}

	item := models.ContentItem{
		Kind:    kind,
		ID:      cell(row, columns, ColumnItem),
		Tier:    tier,
		Answers: make(map[models.Facet][]string),
		Details: make(map[string]string),
	}
	for col, name := range header {
		if name == "" || name == ColumnKind || name == ColumnTier || name == ColumnItem {
			continue
		}
		value := ""
		if col < len(row) {
			value = strings.TrimSpace(row[col])
		}
		if value == "" {
			continue
		}
		if facet := models.Facet(name); slices.Contains(spec.Facets, facet) {
			item.Answers[facet] = append(item.Answers[facet], splitAnswers(value, config.Separator)...)
			continue
		}
		item.Details[name] = value
	}
	return item, nil
}

func splitAnswers(value, sep string) []string {
	if sep == "" {
		return []string{value}
	}
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readExcel returns every row of the sheet
func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

// readCSV returns every record of the file
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
