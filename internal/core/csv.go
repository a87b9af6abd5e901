package core

// csv.go parses collection and wishlist CSV files into validated rows.
//
// The file is checked up front (extension, declared size), then streamed
// through a byte limit and a BOM-aware UTF-8 decoder into encoding/csv.
// The first non-blank record is the header. Each following non-blank record
// is numbered from 1 and either becomes a row or a ParseError; the first
// failing check wins. Blank records are skipped without being counted.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxFileSize is the largest accepted CSV file (5 MiB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// DefaultMaxRows is the ceiling on non-blank data rows per file.
const DefaultMaxRows = 5000

// ParseLimits bounds a CSV parse.
type ParseLimits struct {
	MaxFileSize int64
	MaxRows     int
}

func defaultParseLimits() ParseLimits {
	return ParseLimits{MaxFileSize: DefaultMaxFileSize, MaxRows: DefaultMaxRows}
}

func (l ParseLimits) withDefaults() ParseLimits {
	d := defaultParseLimits()
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = d.MaxFileSize
	}
	if l.MaxRows <= 0 {
		l.MaxRows = d.MaxRows
	}
	return l
}

// CSVResult holds the rows and errors produced by one parse.
type CSVResult[R any] struct {
	Rows   []R          `json:"rows"`
	Errors []ParseError `json:"errors"`
}

// fileError returns the first file-level error, if any.
func (r CSVResult[R]) fileError() (ParseError, bool) {
	for _, e := range r.Errors {
		if e.Row == 0 {
			return e, true
		}
	}
	return ParseError{}, false
}

var errFileTooLarge = errors.New("file too large")

// limitReader fails with errFileTooLarge once more than max bytes are read.
type limitReader struct {
	r    io.Reader
	left int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.left < 0 {
		return 0, errFileTooLarge
	}
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, errFileTooLarge
	}
	return n, err
}

// csvRecord gives header-keyed access to one CSV record.
type csvRecord struct {
	header map[string]int
	fields []string
}

// get returns the cleaned cell for the first matching column key.
func (r csvRecord) get(keys ...string) string {
	for _, k := range keys {
		if pos, ok := r.header[k]; ok && pos < len(r.fields) {
			return CleanCell(r.fields[pos])
		}
	}
	return ""
}

// ParseCollectionCSV parses a collection export.
//
// Columns (any case or separator style): name (required), quantity,
// foilQuantity, condition, language, forTrade, tradePrice.
func ParseCollectionCSV(fileName string, size int64, r io.Reader, limits ParseLimits) CSVResult[ParsedRow] {
	return parseCSVFile(fileName, size, r, limits, buildCollectionRow)
}

// ParseWishlistCSV parses a wishlist export.
//
// Columns (any case or separator style): name (required), quantity,
// priority, maxPrice, minCondition, foilOnly.
func ParseWishlistCSV(fileName string, size int64, r io.Reader, limits ParseLimits) CSVResult[WishlistRow] {
	return parseCSVFile(fileName, size, r, limits, buildWishlistRow)
}

// parseCSVFile runs the shared file checks and row loop. build returns the
// row or a non-empty error message.
func parseCSVFile[R any](fileName string, size int64, r io.Reader, limits ParseLimits, build func(csvRecord) (R, string)) CSVResult[R] {
	limits = limits.withDefaults()
	result := CSVResult[R]{Rows: []R{}, Errors: []ParseError{}}

	fileErr := func(msg string) CSVResult[R] {
		result.Errors = append(result.Errors, ParseError{Row: 0, Message: msg})
		return result
	}

	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return fileErr("File must be a .csv file")
	}
	if size > limits.MaxFileSize {
		return fileErr(tooLargeMessage(limits.MaxFileSize))
	}

	decoded := transform.NewReader(
		&limitReader{r: r, left: limits.MaxFileSize},
		unicode.BOMOverride(unicode.UTF8.NewDecoder()),
	)
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var header map[string]int
	rowNum := 0

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, errFileTooLarge) {
				return CSVResult[R]{Rows: []R{}, Errors: []ParseError{{Row: 0, Message: tooLargeMessage(limits.MaxFileSize)}}}
			}
			result.Errors = append(result.Errors, ParseError{Row: 0, Message: fmt.Sprintf("Could not read CSV after row %d: %v", rowNum, err)})
			return result
		}

		if isEmptyRow(fields) {
			continue
		}

		if header == nil {
			header = makeHeaderIndex(fields)
			continue
		}

		rowNum++
		if rowNum > limits.MaxRows {
			result.Errors = append(result.Errors, ParseError{
				Row:     0,
				Message: fmt.Sprintf("File exceeds the limit of %d rows; remaining rows were not processed", limits.MaxRows),
			})
			return result
		}

		row, msg := build(csvRecord{header: header, fields: fields})
		if msg != "" {
			result.Errors = append(result.Errors, ParseError{Row: rowNum, Message: msg})
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	if len(result.Rows) == 0 && len(result.Errors) == 0 {
		return fileErr("File is empty or has no data rows")
	}

	return result
}

func buildCollectionRow(rec csvRecord) (ParsedRow, string) {
	row := ParsedRow{
		Name: rec.get("name"),
	}
	if row.Name == "" {
		return row, "Missing card name"
	}

	var ok bool
	raw := rec.get("quantity")
	if row.Quantity, ok = parseCount(raw, 1); !ok {
		return row, fmt.Sprintf("Invalid quantity: %q", raw)
	}

	raw = rec.get("foilquantity")
	if row.FoilQuantity, ok = parseCount(raw, 0); !ok {
		return row, fmt.Sprintf("Invalid foil quantity: %q", raw)
	}

	row.Condition = ConditionNearMint
	if raw = rec.get("condition"); raw != "" {
		if row.Condition, ok = NormalizeCondition(raw); !ok {
			return row, fmt.Sprintf("Invalid condition: %q (allowed: %s)", raw, conditionList())
		}
	}

	row.Language = "EN"
	if raw = rec.get("language"); raw != "" {
		row.Language = strings.ToUpper(raw)
	}

	raw = rec.get("fortrade")
	if row.ForTrade, ok = parseCount(raw, 0); !ok {
		return row, fmt.Sprintf("Invalid for trade quantity: %q", raw)
	}
	if total := row.Quantity + row.FoilQuantity; row.ForTrade > total {
		return row, fmt.Sprintf("For trade quantity (%d) exceeds total quantity (%d)", row.ForTrade, total)
	}

	raw = rec.get("tradeprice")
	if row.TradePrice, ok = parsePrice(raw); !ok {
		return row, fmt.Sprintf("Invalid trade price: %q", raw)
	}

	return row, ""
}

func buildWishlistRow(rec csvRecord) (WishlistRow, string) {
	row := WishlistRow{
		Name: rec.get("name"),
	}
	if row.Name == "" {
		return row, "Missing card name"
	}

	var ok bool
	raw := rec.get("quantity")
	if row.Quantity, ok = parseCount(raw, 1); !ok || row.Quantity < 1 {
		return row, fmt.Sprintf("Invalid quantity: %q (must be at least 1)", raw)
	}

	row.Priority = PriorityNormal
	if raw = rec.get("priority"); raw != "" {
		if row.Priority, ok = ParsePriority(raw); !ok {
			return row, fmt.Sprintf("Invalid priority: %q (allowed: %s)", raw, priorityList())
		}
	}

	raw = rec.get("maxprice")
	if row.MaxPrice, ok = parsePrice(raw); !ok {
		return row, fmt.Sprintf("Invalid max price: %q", raw)
	}

	if raw = rec.get("mincondition"); raw != "" {
		c, ok := NormalizeCondition(raw)
		if !ok {
			return row, fmt.Sprintf("Invalid minimum condition: %q (allowed: %s)", raw, conditionList())
		}
		row.MinCondition = &c
	}

	row.FoilOnly = parseTruthy(rec.get("foilonly"))

	return row, ""
}

// makeHeaderIndex maps canonical header keys to column positions.
// The first occurrence of a key wins.
func makeHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := HeaderKey(h)
		if _, seen := idx[key]; !seen && key != "" {
			idx[key] = i
		}
	}
	return idx
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("File exceeds the %s size limit", formatBytes(limit))
}

// formatBytes renders a byte count as a short human-readable size.
func formatBytes(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit && n%(unit*unit) == 0:
		return fmt.Sprintf("%d MB", n/(unit*unit))
	case n >= unit*unit:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%d KB", n/unit)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
