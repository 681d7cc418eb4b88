package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ColumnMap is the position-based column contract for one source. The
// upstream sheets carry decorative, inconsistent header rows, so parsing is
// strictly index-driven.
type ColumnMap struct {
	FirstDataRow     int
	Date             int
	CampaignName     int
	MediaName        int
	Cost             int
	Clicks           int
	Conversions      int
	MicroConversions int
	Revenue          int
	UnitPrice        int
}

// Validate rejects maps that would silently misread a re-laid-out sheet.
// Called once at startup so layout drift fails fast.
func (cm ColumnMap) Validate() error {
	if cm.FirstDataRow < 0 {
		return fmt.Errorf("column map: first data row %d is negative", cm.FirstDataRow)
	}
	idx := map[string]int{
		"date":              cm.Date,
		"campaign_name":     cm.CampaignName,
		"media_name":        cm.MediaName,
		"cost":              cm.Cost,
		"clicks":            cm.Clicks,
		"conversions":       cm.Conversions,
		"micro_conversions": cm.MicroConversions,
		"revenue":           cm.Revenue,
		"unit_price":        cm.UnitPrice,
	}
	seen := map[int]string{}
	for name, i := range idx {
		if i < 0 {
			return fmt.Errorf("column map: %s index %d is negative", name, i)
		}
		if prev, ok := seen[i]; ok {
			return fmt.Errorf("column map: %s and %s share index %d", prev, name, i)
		}
		seen[i] = name
	}
	return nil
}

// headerSentinels are cell values that mark a repeated header row in the
// middle of the data region. The upstream sheets are maintained by hand.
var headerSentinels = map[string]struct{}{
	"キャンペーン名":       {},
	"campaign_name": {},
	"Campaign Name": {},
}

// Normalize maps raw text rows into campaign records. Rows before
// FirstDataRow, rows with an empty or sentinel campaign name, and rows whose
// date cannot be parsed are skipped; the second return value counts rows that
// carried a name but were dropped anyway. Unparsable numeric cells coerce to
// zero instead of dropping the row. Normalize is pure and never fails.
func Normalize(rows [][]string, cm ColumnMap) ([]CampaignRecord, int) {
	records := make([]CampaignRecord, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		if i < cm.FirstDataRow {
			continue
		}
		name := strings.TrimSpace(cell(row, cm.CampaignName))
		if name == "" {
			continue
		}
		if _, ok := headerSentinels[name]; ok {
			continue
		}
		// Ragged rows: missing numeric cells coerce to zero via cell(), and a
		// missing date cell drops the row like any unparsable date.
		date, ok := parseDate(cell(row, cm.Date))
		if !ok {
			skipped++
			continue
		}
		records = append(records, CampaignRecord{
			CampaignName:     name,
			Date:             date,
			MediaName:        strings.TrimSpace(cell(row, cm.MediaName)),
			Cost:             parseDecimal(cell(row, cm.Cost)),
			Clicks:           parseInt(cell(row, cm.Clicks)),
			Conversions:      parseInt(cell(row, cm.Conversions)),
			MicroConversions: parseInt(cell(row, cm.MicroConversions)),
			Revenue:          parseDecimal(cell(row, cm.Revenue)),
			UnitPrice:        parseDecimal(cell(row, cm.UnitPrice)),
		})
	}
	return records, skipped
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// numericJunk strips currency marks, thousands separators and percent signs
// the sheets mix into numeric cells.
var numericJunk = strings.NewReplacer(",", "", "¥", "", "￥", "", "$", "", "%", "", " ", "", "　", "")

func parseDecimal(raw string) decimal.Decimal {
	s := numericJunk.Replace(strings.TrimSpace(raw))
	if s == "" || s == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(raw string) int64 {
	return parseDecimal(raw).IntPart()
}

// parseDate accepts YYYY/MM/DD or YYYY-MM-DD prefixes; a trailing time
// component is discarded. Truncated to midnight UTC so dates compare by day.
func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if len(s) < 10 {
		return time.Time{}, false
	}
	s = s[:10]
	for _, layout := range []string{"2006/01/02", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
