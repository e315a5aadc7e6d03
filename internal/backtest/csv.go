package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCloses parses closes from the last column of each CSV row. A first row
// that does not parse is taken as the header.
func ReadCloses(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var closes []float64
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row+1, err)
		}
		if len(record) == 0 {
			continue
		}
		raw := strings.TrimSpace(record[len(record)-1])
		px, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			if row == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: invalid close %q: %w", row+1, raw, err)
		}
		closes = append(closes, px)
	}
	if len(closes) == 0 {
		return nil, ErrEmptySeries
	}
	return closes, nil
}

// LoadCloses reads closes from the CSV file at path.
func LoadCloses(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCloses(file)
}
