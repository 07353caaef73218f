package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/airsial/opshub/internal/records"
)

// Severities treated as critical for the safety score and alerting.
var criticalSeverities = []string{"Critical", "High"}

// Summary is a point-in-time rollup of all three collections, consumed by
// the dashboard and embedded into assistant prompts.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalMaintenance     int     `json:"total_maintenance"`
	PendingMaintenance   int     `json:"pending_maintenance"`
	CompletedMaintenance int     `json:"completed_maintenance"`
	TotalHours           float64 `json:"total_hours"`
	AvgHours             float64 `json:"avg_hours"`
	Efficiency           float64 `json:"efficiency"`

	TotalIncidents    int `json:"total_incidents"`
	CriticalIncidents int `json:"critical_incidents"`
	SafetyScore       int `json:"safety_score"`

	TotalFlights int `json:"total_flights"`

	TopMaintenanceTypes []Tally `json:"top_maintenance_types"`
	SeverityBreakdown   []Tally `json:"severity_breakdown"`
}

// BuildSummary computes a Summary from collection snapshots.
func BuildSummary(maintenance, safety, flight []*records.Record) *Summary {
	s := &Summary{
		GeneratedAt:          time.Now().UTC(),
		TotalMaintenance:     Count(maintenance),
		PendingMaintenance:   CountWhere(maintenance, "status", "Pending"),
		CompletedMaintenance: CountWhere(maintenance, "status", "Completed"),
		TotalHours:           SumNumeric(maintenance, "estimated_hours"),
		TotalIncidents:       Count(safety),
		TotalFlights:         Count(flight),
		TopMaintenanceTypes:  TopN(GroupTally(maintenance, "type"), 5),
		SeverityBreakdown:    GroupTally(safety, "severity"),
	}

	for _, sev := range criticalSeverities {
		s.CriticalIncidents += CountWhere(safety, "severity", sev)
	}

	if s.TotalMaintenance > 0 {
		s.AvgHours = s.TotalHours / float64(s.TotalMaintenance)
		s.Efficiency = float64(s.TotalMaintenance-s.PendingMaintenance) / float64(s.TotalMaintenance) * 100
	}

	s.SafetyScore = 100 - s.CriticalIncidents*10
	if s.SafetyScore < 0 {
		s.SafetyScore = 0
	}
	return s
}

// Render formats the summary as the plain-text operational data block used
// as assistant context.
func (s *Summary) Render() string {
	var b strings.Builder
	b.WriteString("OPERATIONAL DATA SUMMARY:\n")
	b.WriteString("========================\n")
	b.WriteString("Maintenance:\n")
	fmt.Fprintf(&b, "- Total Tasks: %d\n", s.TotalMaintenance)
	fmt.Fprintf(&b, "- Pending: %d\n", s.PendingMaintenance)
	fmt.Fprintf(&b, "- Completed: %d\n", s.CompletedMaintenance)
	fmt.Fprintf(&b, "- Total Hours: %.1f\n", s.TotalHours)
	fmt.Fprintf(&b, "- Average Hours/Task: %.1f\n", s.AvgHours)
	b.WriteString("\nSafety:\n")
	fmt.Fprintf(&b, "- Total Incidents: %d\n", s.TotalIncidents)
	fmt.Fprintf(&b, "- Critical/High: %d\n", s.CriticalIncidents)
	fmt.Fprintf(&b, "- Safety Score: %d/100\n", s.SafetyScore)
	b.WriteString("\nFlights:\n")
	fmt.Fprintf(&b, "- Total Flights: %d\n", s.TotalFlights)
	b.WriteString("\nTop Maintenance Types:\n")
	for _, t := range s.TopMaintenanceTypes {
		fmt.Fprintf(&b, "- %s: %d times\n", t.Value, t.Count)
	}
	return b.String()
}

// Alerts returns the dashboard alert lines for the current state.
func (s *Summary) Alerts() []string {
	var alerts []string
	if s.CriticalIncidents > 0 {
		alerts = append(alerts, fmt.Sprintf("%d critical safety incidents need review", s.CriticalIncidents))
	}
	if s.PendingMaintenance > 5 {
		alerts = append(alerts, fmt.Sprintf("%d maintenance tasks pending", s.PendingMaintenance))
	}
	if len(alerts) == 0 {
		alerts = append(alerts, "All systems operational")
	}
	return alerts
}

// RecentActivities formats the newest records of each collection as human
// readable activity lines, newest collections interleaved, capped at limit.
func RecentActivities(maintenance, safety, flight []*records.Record, limit int) []string {
	var lines []string
	for _, r := range tail(maintenance, 3) {
		lines = append(lines, fmt.Sprintf("Maintenance: %s on %s", orNA(r.Field("type")), orNA(r.Field("aircraft"))))
	}
	for _, r := range tail(safety, 3) {
		lines = append(lines, fmt.Sprintf("Safety: %s [%s]", orNA(r.Field("type")), orNA(r.Field("severity"))))
	}
	for _, r := range tail(flight, 3) {
		lines = append(lines, fmt.Sprintf("Flight: %s", orNA(r.Field("flight_number"))))
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}

func tail(recs []*records.Record, n int) []*records.Record {
	if len(recs) <= n {
		return recs
	}
	return recs[len(recs)-n:]
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
