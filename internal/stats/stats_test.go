package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airsial/opshub/internal/records"
)

func rec(fields map[string]string) *records.Record {
	return &records.Record{Fields: fields}
}

func maintRecs(hours ...string) []*records.Record {
	out := make([]*records.Record, len(hours))
	for i, h := range hours {
		out[i] = rec(map[string]string{"estimated_hours": h})
	}
	return out
}

func TestCountAndSumNumeric(t *testing.T) {
	recs := maintRecs("8", "12", "0")
	assert.Equal(t, 3, Count(recs))
	assert.Equal(t, 20.0, SumNumeric(recs, "estimated_hours"))
}

func TestSumNumericToleratesJunk(t *testing.T) {
	recs := []*records.Record{
		rec(map[string]string{"estimated_hours": "8.5"}),
		rec(map[string]string{"estimated_hours": "n/a"}),
		rec(map[string]string{"estimated_hours": ""}),
		rec(map[string]string{}),
	}
	assert.Equal(t, 8.5, SumNumeric(recs, "estimated_hours"))
	assert.Equal(t, 0.0, SumNumeric(nil, "estimated_hours"))
}

func TestCountWhere(t *testing.T) {
	recs := []*records.Record{
		rec(map[string]string{"status": "Pending"}),
		rec(map[string]string{"status": "Completed"}),
		rec(map[string]string{"status": "Pending"}),
	}
	assert.Equal(t, 2, CountWhere(recs, "status", "Pending"))
	assert.Equal(t, 1, CountWhere(recs, "status", "Completed"))
	assert.Equal(t, 0, CountWhere(recs, "status", "Cancelled"))
}

func TestGroupTallyKeepsEncounterOrder(t *testing.T) {
	recs := []*records.Record{
		rec(map[string]string{"type": "A-Check"}),
		rec(map[string]string{"type": "C-Check"}),
		rec(map[string]string{"type": "B-Check"}),
		rec(map[string]string{"type": "A-Check"}),
		rec(map[string]string{"type": "B-Check"}),
	}
	tallies := GroupTally(recs, "type")
	assert.Equal(t, []Tally{
		{Value: "A-Check", Count: 2},
		{Value: "C-Check", Count: 1},
		{Value: "B-Check", Count: 2},
	}, tallies)
}

func TestGroupTallyMissingFieldBucketsAsUnknown(t *testing.T) {
	recs := []*records.Record{
		rec(map[string]string{"type": "A-Check"}),
		rec(map[string]string{}),
		rec(map[string]string{"type": ""}),
	}
	tallies := GroupTally(recs, "type")
	assert.Equal(t, []Tally{
		{Value: "A-Check", Count: 1},
		{Value: "Unknown", Count: 1},
		{Value: "", Count: 1},
	}, tallies)
}

func TestTopNTieBreaksByFirstEncounter(t *testing.T) {
	// A seen before B; both end at count 2.
	tallies := []Tally{
		{Value: "A", Count: 2},
		{Value: "C", Count: 1},
		{Value: "B", Count: 2},
	}
	top := TopN(tallies, 2)
	assert.Equal(t, []Tally{{Value: "A", Count: 2}, {Value: "B", Count: 2}}, top)
}

func TestTopNDoesNotMutateInput(t *testing.T) {
	tallies := []Tally{{Value: "A", Count: 1}, {Value: "B", Count: 5}}
	_ = TopN(tallies, 1)
	assert.Equal(t, "A", tallies[0].Value)
}

func TestTopNShorterThanN(t *testing.T) {
	top := TopN([]Tally{{Value: "A", Count: 1}}, 5)
	assert.Len(t, top, 1)
}

func TestBuildSummary(t *testing.T) {
	maintenance := []*records.Record{
		rec(map[string]string{"status": "Pending", "estimated_hours": "8", "type": "A-Check"}),
		rec(map[string]string{"status": "Completed", "estimated_hours": "12", "type": "B-Check"}),
		rec(map[string]string{"status": "Completed", "estimated_hours": "0", "type": "A-Check"}),
	}
	safety := []*records.Record{
		rec(map[string]string{"severity": "High"}),
		rec(map[string]string{"severity": "Low"}),
		rec(map[string]string{"severity": "Critical"}),
	}
	flight := []*records.Record{
		rec(map[string]string{"flight_number": "PK-300"}),
	}

	s := BuildSummary(maintenance, safety, flight)

	assert.Equal(t, 3, s.TotalMaintenance)
	assert.Equal(t, 1, s.PendingMaintenance)
	assert.Equal(t, 2, s.CompletedMaintenance)
	assert.Equal(t, 20.0, s.TotalHours)
	assert.InDelta(t, 6.667, s.AvgHours, 0.001)
	assert.InDelta(t, 66.667, s.Efficiency, 0.001)
	assert.Equal(t, 3, s.TotalIncidents)
	assert.Equal(t, 2, s.CriticalIncidents)
	assert.Equal(t, 80, s.SafetyScore)
	assert.Equal(t, 1, s.TotalFlights)
	assert.Equal(t, []Tally{{Value: "A-Check", Count: 2}, {Value: "B-Check", Count: 1}}, s.TopMaintenanceTypes)
}

func TestBuildSummaryEmptyCollections(t *testing.T) {
	s := BuildSummary(nil, nil, nil)
	assert.Zero(t, s.TotalMaintenance)
	assert.Zero(t, s.AvgHours)
	assert.Zero(t, s.Efficiency)
	assert.Equal(t, 100, s.SafetyScore)
}

func TestSafetyScoreClampsAtZero(t *testing.T) {
	safety := make([]*records.Record, 12)
	for i := range safety {
		safety[i] = rec(map[string]string{"severity": "Critical"})
	}
	s := BuildSummary(nil, safety, nil)
	assert.Equal(t, 0, s.SafetyScore)
}

func TestSummaryRender(t *testing.T) {
	s := BuildSummary(
		[]*records.Record{rec(map[string]string{"status": "Pending", "estimated_hours": "8", "type": "A-Check"})},
		nil, nil,
	)
	text := s.Render()
	assert.Contains(t, text, "OPERATIONAL DATA SUMMARY:")
	assert.Contains(t, text, "- Total Tasks: 1")
	assert.Contains(t, text, "- Pending: 1")
	assert.Contains(t, text, "- Total Hours: 8.0")
	assert.Contains(t, text, "- Safety Score: 100/100")
	assert.Contains(t, text, "- A-Check: 1 times")
}

func TestAlerts(t *testing.T) {
	quiet := &Summary{}
	assert.Equal(t, []string{"All systems operational"}, quiet.Alerts())

	busy := &Summary{CriticalIncidents: 2, PendingMaintenance: 7}
	alerts := busy.Alerts()
	assert.Len(t, alerts, 2)
	assert.Contains(t, alerts[0], "2 critical safety incidents")
	assert.Contains(t, alerts[1], "7 maintenance tasks pending")
}

func TestRecentActivities(t *testing.T) {
	maintenance := []*records.Record{
		rec(map[string]string{"type": "A-Check", "aircraft": "AP-BOA"}),
		rec(map[string]string{"type": "B-Check", "aircraft": "AP-BOB"}),
		rec(map[string]string{"type": "C-Check", "aircraft": "AP-BOC"}),
		rec(map[string]string{"type": "A-Check", "aircraft": "AP-BOD"}),
	}
	safety := []*records.Record{rec(map[string]string{"type": "Bird Strike", "severity": "Low"})}
	flight := []*records.Record{rec(map[string]string{"flight_number": "PK-300"})}

	lines := RecentActivities(maintenance, safety, flight, 5)
	assert.Len(t, lines, 5)
	assert.Equal(t, "Maintenance: B-Check on AP-BOB", lines[0], "only the newest three maintenance records appear")
	assert.Equal(t, "Safety: Bird Strike [Low]", lines[3])
	assert.Equal(t, "Flight: PK-300", lines[4])

	empty := RecentActivities(nil, nil, nil, 5)
	assert.Empty(t, empty)
}
