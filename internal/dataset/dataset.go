// Package dataset turns an uploaded sales CSV into transactions and writes
// filtered transactions back out.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pharma-dashboard/internal/models"
)

// Column headers of the upload format.
const (
	HeaderPeriod         = "기준년월"
	HeaderRepresentative = "담당자"
	HeaderClient         = "거래처명"
	HeaderProductGroup   = "품목군"
	HeaderProduct        = "품목명"
	HeaderQuantity       = "총수량"
	HeaderRevenue        = "총매출"
)

var requiredHeaders = []string{
	HeaderPeriod,
	HeaderRepresentative,
	HeaderClient,
	HeaderProduct,
	HeaderRevenue,
}

const (
	defaultBatchSize = 5000
	defaultWorkers   = 4
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Layout records which optional columns an upload carried.
type Layout struct {
	ProductGroup bool
	Quantity     bool
}

// Headers returns the columns to show or export, in display order.
func (l Layout) Headers() []string {
	h := []string{HeaderPeriod, HeaderRepresentative, HeaderClient}
	if l.ProductGroup {
		h = append(h, HeaderProductGroup)
	}
	h = append(h, HeaderProduct)
	if l.Quantity {
		h = append(h, HeaderQuantity)
	}
	return append(h, HeaderRevenue)
}

type Dataset struct {
	Name     string
	Rows     []models.Transaction
	Layout   Layout
	LoadedAt time.Time
}

type Options struct {
	Workers   int
	BatchSize int
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type columnIndex map[string]int

func (c columnIndex) cell(record []string, header string) string {
	i, ok := c[header]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Parse reads a whole upload. Any bad row rejects the upload; the returned
// error is a *RowError or *MissingColumnsError in that case. An upload with
// no data rows returns ErrEmpty.
func Parse(ctx context.Context, r io.Reader, name string, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()
	start := time.Now()

	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, layout, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &RowError{Line: pe.Line, Err: pe.Err}
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		if len(rec) != len(header) {
			line, _ := reader.FieldPos(0)
			return nil, &RowError{Line: line, Err: fmt.Errorf("expected %d fields, got %d", len(header), len(rec))}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrEmpty
	}

	rows, err := parseRecords(ctx, records, cols, opts)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("dataset parsed",
		"name", name,
		"rows", len(rows),
		"product_group", layout.ProductGroup,
		"quantity", layout.Quantity,
		"duration", time.Since(start),
	)

	return &Dataset{
		Name:     name,
		Rows:     rows,
		Layout:   layout,
		LoadedAt: time.Now(),
	}, nil
}

func indexHeader(header []string) (columnIndex, Layout, error) {
	cols := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := cols[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, Layout{}, &MissingColumnsError{Columns: missing}
	}

	_, hasGroup := cols[HeaderProductGroup]
	_, hasQty := cols[HeaderQuantity]
	return cols, Layout{ProductGroup: hasGroup, Quantity: hasQty}, nil
}

// parseRecords converts records in batches, each batch fanned out over a
// bounded set of workers. Output order matches input order.
func parseRecords(ctx context.Context, records [][]string, cols columnIndex, opts Options) ([]models.Transaction, error) {
	rows := make([]models.Transaction, len(records))

	for lo := 0; lo < len(records); lo += opts.BatchSize {
		hi := min(lo+opts.BatchSize, len(records))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)

		for i := lo; i < hi; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				// Header is line 1.
				tx, err := parseRecord(records[i], cols, i+2)
				if err != nil {
					return err
				}
				rows[i] = tx
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func parseRecord(rec []string, cols columnIndex, line int) (models.Transaction, error) {
	raw := cols.cell(rec, HeaderPeriod)
	period, err := ParsePeriod(raw)
	if err != nil {
		return models.Transaction{}, &RowError{Line: line, Column: HeaderPeriod, Value: raw, Err: err}
	}

	raw = cols.cell(rec, HeaderRevenue)
	revenue, err := parseAmount(raw)
	if err != nil {
		return models.Transaction{}, &RowError{Line: line, Column: HeaderRevenue, Value: raw, Err: err}
	}

	var qty int64
	if raw = cols.cell(rec, HeaderQuantity); raw != "" {
		qty, err = parseQuantity(raw)
		if err != nil {
			return models.Transaction{}, &RowError{Line: line, Column: HeaderQuantity, Value: raw, Err: err}
		}
	}

	return models.Transaction{
		Period:         period,
		Representative: cols.cell(rec, HeaderRepresentative),
		Client:         cols.cell(rec, HeaderClient),
		Product:        cols.cell(rec, HeaderProduct),
		ProductGroup:   cols.cell(rec, HeaderProductGroup),
		Quantity:       qty,
		Revenue:        revenue,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	return decimal.NewFromString(s)
}

func parseQuantity(s string) (int64, error) {
	d, err := parseAmount(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("quantity %s is not a whole number", d)
	}
	return d.IntPart(), nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// FormatQuantity is the export form of a quantity.
func FormatQuantity(q int64) string {
	return strconv.FormatInt(q, 10)
}
