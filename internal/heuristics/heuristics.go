package heuristics

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/registrylens/registry-risk/internal/registry"
)

// PublicRegistryURL is the public web front-end for registry records.
const PublicRegistryURL = "https://find-and-update.company-information.service.gov.uk"

// FormationAgentAddresses lists lowercase fragments of known bulk
// company-formation agent addresses.
var FormationAgentAddresses = []string{
	"71-75 shelton street",
	"20-22 wenlock road",
	"85 great portland street",
	"kemp house",
	"27 old gloucester street",
	"128 city road",
	"suite 4 lincoln house",
	"167-169 great portland street",
	"c/o companies house",
	"lenta business centre",
	"63/66 hatton garden",
}

// InsolvencyStatuses enumerates company statuses that indicate an active or
// past insolvency process.
var InsolvencyStatuses = map[string]bool{
	"liquidation":            true,
	"administration":         true,
	"receivership":           true,
	"voluntary-arrangement":  true,
	"insolvency-proceedings": true,
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9 ]`)

// ParseDate parses a registry YYYY-MM-DD date, tolerating timestamp suffixes.
// Returns ok=false for empty or malformed values.
func ParseDate(value string) (time.Time, bool) {
	if len(value) < 10 {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", value[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween returns the day count from d1 to d2, positive when d2 is later.
func DaysBetween(d1, d2 time.Time) int {
	return int(d2.Sub(d1).Hours() / 24)
}

// AccountsDeadline returns the statutory accounts filing deadline for an
// accounting reference date. Public companies get 6 months, private 9.
// Month arithmetic clamps to the end of the target month rather than
// spilling into the next one.
func AccountsDeadline(ard time.Time, companyType string) time.Time {
	months := 9
	if companyType == "plc" || companyType == "public-limited" {
		months = 6
	}
	return addMonthsClamped(ard, months)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// NormalizeAddress flattens a registry address object to lowercase
// alphanumerics for fuzzy comparison.
func NormalizeAddress(address map[string]any) string {
	parts := []string{
		stringField(address, "address_line_1"),
		stringField(address, "address_line_2"),
		stringField(address, "locality"),
		stringField(address, "postal_code"),
	}
	return NormalizeAddressString(strings.Join(parts, " "))
}

// NormalizeAddressString lowercases and strips punctuation from a raw
// address string.
func NormalizeAddressString(raw string) string {
	return strings.TrimSpace(nonAlphanumeric.ReplaceAllString(strings.ToLower(raw), ""))
}

// IsFormationAgentAddress reports whether an address matches a known bulk
// formation agent location.
func IsFormationAgentAddress(address map[string]any) bool {
	normalized := NormalizeAddress(address)
	if normalized == "" {
		return false
	}
	for _, fragment := range FormationAgentAddresses {
		if strings.Contains(normalized, NormalizeAddressString(fragment)) {
			return true
		}
	}
	return false
}

// ExtractOfficerID pulls the officer identifier out of the link fragments in
// an officer-list entry, e.g. "/officers/abc123/appointments" yields "abc123".
func ExtractOfficerID(links registry.OfficerLinks) string {
	link := links.Officer.Appointments
	if link == "" {
		link = links.Self
	}
	parts := strings.Split(link, "/")
	for i, part := range parts {
		if part == "officers" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// CompanyURL returns the public registry page for a company.
func CompanyURL(companyNumber string) string {
	return PublicRegistryURL + "/company/" + companyNumber
}

// OfficerURL returns the public registry page for an officer's appointments.
func OfficerURL(officerID string) string {
	return PublicRegistryURL + "/officers/" + officerID + "/appointments"
}

// NameSimilarity scores two names between 0 (unrelated) and 1 (identical)
// using normalized Levenshtein distance.
func NameSimilarity(a, b string) float64 {
	a = strings.TrimSpace(strings.ToLower(a))
	b = strings.TrimSpace(strings.ToLower(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(prev[len(rb)])/float64(maxLen)
}

// DissolutionRate reports how many of an officer's appointments ended in a
// dissolved company, with the rate as a percentage.
func DissolutionRate(appointments []registry.Appointment) (dissolved, total int, rate float64) {
	total = len(appointments)
	if total == 0 {
		return 0, 0, 0
	}
	for _, appt := range appointments {
		if appt.AppointedTo.CompanyStatus == "dissolved" {
			dissolved++
		}
	}
	return dissolved, total, float64(dissolved) / float64(total) * 100
}

// MedianTenure returns the median appointment length in years across dated
// appointments, with ok=false when none carry an appointment date. Open
// appointments run to the current day.
func MedianTenure(appointments []registry.Appointment, today time.Time) (float64, bool) {
	var tenures []float64
	for _, appt := range appointments {
		appointed, ok := ParseDate(appt.AppointedOn)
		if !ok {
			continue
		}
		end := today
		if resigned, ok := ParseDate(appt.ResignedOn); ok {
			end = resigned
		}
		days := DaysBetween(appointed, end)
		if days >= 0 {
			tenures = append(tenures, float64(days)/365.25)
		}
	}
	if len(tenures) == 0 {
		return 0, false
	}
	sort.Float64s(tenures)
	mid := len(tenures) / 2
	if len(tenures)%2 == 0 {
		return (tenures[mid-1] + tenures[mid]) / 2, true
	}
	return tenures[mid], true
}

// ChurnRate reports new appointments per year across the dated appointment
// span. Spans under half a year, or fewer than two dated appointments,
// yield zero to avoid meaningless rates.
func ChurnRate(appointments []registry.Appointment) float64 {
	var dates []time.Time
	for _, appt := range appointments {
		if d, ok := ParseDate(appt.AppointedOn); ok {
			dates = append(dates, d)
		}
	}
	if len(dates) < 2 {
		return 0
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	spanYears := float64(DaysBetween(dates[0], dates[len(dates)-1])) / 365.25
	if spanYears < 0.5 {
		return 0
	}
	return float64(len(appointments)) / spanYears
}

// SICOverlap reports whether two SIC code lists share any code.
func SICOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, code := range a {
		set[code] = true
	}
	for _, code := range b {
		if set[code] {
			return true
		}
	}
	return false
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
