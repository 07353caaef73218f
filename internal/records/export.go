package records

import (
	"time"
)

// PackageStatistics carries the per-collection counts embedded in a full
// snapshot document.
type PackageStatistics struct {
	MaintenanceRecords int `json:"maintenance_records"`
	SafetyRecords      int `json:"safety_records"`
	FlightRecords      int `json:"flight_records"`
}

// ExportPackage is the structured full-snapshot document: export metadata,
// per-collection counts and all three collections.
type ExportPackage struct {
	ExportDate      string            `json:"export_date"`
	ExportedBy      string            `json:"exported_by"`
	Statistics      PackageStatistics `json:"statistics"`
	MaintenanceData []*Record         `json:"maintenance_data"`
	SafetyData      []*Record         `json:"safety_data"`
	FlightData      []*Record         `json:"flight_data"`
}

// ExportPackage builds the full snapshot of all three collections. Pure
// read, no mutation.
func (s *Store) ExportPackage(caller Caller) (*ExportPackage, error) {
	maintenance, err := s.Query(Maintenance, Filter{})
	if err != nil {
		return nil, err
	}
	safety, err := s.Query(Safety, Filter{})
	if err != nil {
		return nil, err
	}
	flight, err := s.Query(Flight, Filter{})
	if err != nil {
		return nil, err
	}

	return &ExportPackage{
		ExportDate: time.Now().UTC().Format(time.RFC3339),
		ExportedBy: caller.Name,
		Statistics: PackageStatistics{
			MaintenanceRecords: len(maintenance),
			SafetyRecords:      len(safety),
			FlightRecords:      len(flight),
		},
		MaintenanceData: maintenance,
		SafetyData:      safety,
		FlightData:      flight,
	}, nil
}
