package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CampaignRecord is one row of observed performance for one campaign on one
// date. Records are built fresh on every pipeline run and never mutated.
type CampaignRecord struct {
	CampaignName     string          `json:"campaign_name"`
	Date             time.Time       `json:"date"`
	MediaName        string          `json:"media_name"`
	Cost             decimal.Decimal `json:"cost"`
	Clicks           int64           `json:"clicks"`
	Conversions      int64           `json:"conversions"`
	MicroConversions int64           `json:"micro_conversions"`
	Revenue          decimal.Decimal `json:"revenue"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// Ownership is the structured form of the naming convention embedded in
// campaign names: "<department>_<team>_<creativeID>".
type Ownership struct {
	Department string `json:"department"`
	Team       string `json:"team"`
	CreativeID string `json:"creative_id"`
}

// Needle is the literal substring a campaign name must contain to belong to
// this department/team pair. Matching stays substring-based and
// case-sensitive to mirror how names are written in the sheets.
func (o Ownership) Needle() string {
	return o.Department + "_" + o.Team + "_"
}

// ParseOwnership splits a campaign name into its ownership parts. The third
// return segment absorbs any extra underscores so creative IDs may themselves
// contain "_". Returns false for names that do not follow the convention.
func ParseOwnership(campaignName string) (Ownership, bool) {
	name := strings.TrimSpace(campaignName)
	if name == "" {
		return Ownership{}, false
	}
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Ownership{}, false
	}
	return Ownership{
		Department: parts[0],
		Team:       parts[1],
		CreativeID: parts[2],
	}, true
}

// ScopePairs is ScopeToTeam for joined comparison pairs; views filter on
// read after the shared pipeline run, so one computation serves every team.
func ScopePairs(pairs []ComparisonPair, department, team string) []ComparisonPair {
	if team == "" {
		return pairs
	}
	needle := Ownership{Department: department, Team: team}.Needle()
	out := make([]ComparisonPair, 0, len(pairs))
	for _, pair := range pairs {
		if strings.Contains(pair.CampaignName, needle) {
			out = append(out, pair)
		}
	}
	return out
}

// ScopeToTeam restricts records to one team. An empty team means the caller
// is an administrator and sees everything. The returned slice shares no
// backing array with the input when filtering occurs.
func ScopeToTeam(records []CampaignRecord, department, team string) []CampaignRecord {
	if team == "" {
		return records
	}
	needle := Ownership{Department: department, Team: team}.Needle()
	out := make([]CampaignRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(rec.CampaignName, needle) {
			out = append(out, rec)
		}
	}
	return out
}
