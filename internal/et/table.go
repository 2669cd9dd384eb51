// Package et provides the static monthly evapotranspiration lookup used by
// the recharge proxy model.
package et

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// NationalDefaultMonthly is the fallback evapotranspiration in mm/month
// when no station-specific figure exists: a 45 mm/month reference PET
// scaled by a crop coefficient of 0.65.
const NationalDefaultMonthly = 29.25

type key struct {
	station string
	month   time.Month
}

// Table maps (station, calendar month) to mean evapotranspiration in
// mm/month. The zero value is usable and answers every lookup with the
// national default.
type Table struct {
	entries map[key]float64
}

// MonthlyET returns the evapotranspiration figure for a station and month,
// falling back to NationalDefaultMonthly when no entry exists.
func (t *Table) MonthlyET(stationID string, month time.Month) float64 {
	if t == nil || t.entries == nil {
		return NationalDefaultMonthly
	}
	if v, ok := t.entries[key{station: strings.ToUpper(stationID), month: month}]; ok {
		return v
	}
	return NationalDefaultMonthly
}

// Len reports the number of station-month entries loaded.
func (t *Table) Len() int {
	return len(t.entries)
}

// Load parses a table from CSV with a "station,month,et_mm" header row.
// Month is the 1-12 calendar month number, et_mm the mm/month figure.
// Rows with unparseable numbers are skipped rather than failing the load.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("read evapotranspiration header: %w", err)
	}

	t := &Table{entries: make(map[key]float64)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read evapotranspiration row: %w", err)
		}
		month, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil || month < 1 || month > 12 {
			continue
		}
		mm, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			continue
		}
		t.entries[key{station: strings.ToUpper(strings.TrimSpace(rec[0])), month: time.Month(month)}] = mm
	}
	return t, nil
}
