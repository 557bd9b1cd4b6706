// Package ingest turns the uploaded weights and prices files into a snapshot.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aristath/etfmonitor/internal/domain"
)

// WeightRow is one line of the weights file
type WeightRow struct {
	Name   string
	Weight float64
}

// ParseWeights reads a "name,weight" CSV. Column order and header case do not
// matter; extra columns are ignored.
func ParseWeights(r io.Reader) ([]WeightRow, error) {
	reader := newReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, malformed("weights", "failed to read header", err)
	}
	nameCol, weightCol := columnIndex(header, "name"), columnIndex(header, "weight")
	if nameCol < 0 || weightCol < 0 {
		return nil, malformed("weights", "header must contain name and weight columns", nil)
	}

	var rows []WeightRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("weights", fmt.Sprintf("line %d", line), err)
		}
		if blank(record) {
			continue
		}

		name := strings.TrimSpace(field(record, nameCol))
		if name == "" {
			return nil, malformed("weights", fmt.Sprintf("line %d: empty name", line), nil)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(field(record, weightCol)), 64)
		if err != nil {
			return nil, malformed("weights", fmt.Sprintf("line %d: weight for %s", line, name), err)
		}
		rows = append(rows, WeightRow{Name: name, Weight: weight})
	}

	if len(rows) == 0 {
		return nil, malformed("weights", "no holdings", nil)
	}
	return rows, nil
}

// ParsePrices reads a wide CSV with a DATE column followed by one column per
// ticker. Empty cells are gaps, not zeros.
func ParsePrices(r io.Reader) (domain.PriceHistory, error) {
	reader := newReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, malformed("prices", "failed to read header", err)
	}
	dateCol := columnIndex(header, "date")
	if dateCol < 0 {
		return nil, malformed("prices", "header must contain a DATE column", nil)
	}

	tickers := make([]string, len(header))
	for i, h := range header {
		if i == dateCol {
			continue
		}
		tickers[i] = strings.TrimSpace(h)
	}

	history := domain.PriceHistory{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("prices", fmt.Sprintf("line %d", line), err)
		}
		if blank(record) {
			continue
		}

		date, err := domain.ParseDate(field(record, dateCol))
		if err != nil {
			return nil, malformed("prices", fmt.Sprintf("line %d", line), err)
		}

		for i, ticker := range tickers {
			if ticker == "" {
				continue
			}
			cell := strings.TrimSpace(field(record, i))
			if cell == "" {
				continue
			}
			price, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, malformed("prices", fmt.Sprintf("line %d: price for %s", line, ticker), err)
			}
			history.Add(ticker, date, price)
		}
	}

	if len(history) == 0 {
		return nil, malformed("prices", "no prices", nil)
	}
	return history, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func malformed(file, msg string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s file: %s: %v", domain.ErrMalformedInput, file, msg, err)
	}
	return fmt.Errorf("%w: %s file: %s", domain.ErrMalformedInput, file, msg)
}
