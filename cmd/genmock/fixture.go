package main

import "github.com/couchcryptid/beacon-outage-service/internal/domain"

// barangays are seeded in this order so that Irisan gets id 1 on a fresh
// database.
var barangays = []string{
	"Irisan",
	"Loakan Proper",
	"Kabayanihan",
	"Session Road Area",
	"Pinsao Proper",
	"Camp 7",
	"Upper Irisan",
}

type profile struct {
	id       string
	barangay string
}

// profiles cover each resolution path: a numeric barangay id, a verbatim
// name and the "Not set" sentinel.
var profiles = []profile{
	{id: "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0001", barangay: "1"},
	{id: "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0002", barangay: "Loakan Proper"},
	{id: "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0003", barangay: "Not set"},
}

var reports = []domain.UserReport{
	{
		ID:          "7d2e9a14-6b3f-4c8a-8e1d-3f5a7c9b0001",
		UserID:      "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0001",
		Locality:    "Irisan",
		Description: "No power since early morning in Purok 3",
	},
	{
		ID:          "7d2e9a14-6b3f-4c8a-8e1d-3f5a7c9b0002",
		UserID:      "5b0c3f7e-4a51-4d1c-9f3e-2a6d8b1c0002",
		Locality:    "Loakan Proper",
		Status:      "verified",
		Description: "Loud bang from the transformer near the chapel",
	},
}

func feeder(name string) *domain.RawFeeder { return &domain.RawFeeder{Name: name} }

// announcements mirror rows as the hosted backend returns them, including
// the loose shapes the normaliser has to cope with: string coordinates,
// null barangays and missing feeders.
var announcements = []domain.RawRecord{
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000001", Type: "unscheduled", Status: "Ongoing",
		Barangay: "Irisan", AreasAffected: domain.LocalityList{"Upper Irisan", "Purok 3"},
		Description: "Crews are clearing a fallen pine tree from the primary line.",
		Location:    "Purok 3, Irisan", Cause: "Tree fell on line",
		FeederID: float64(1), Feeders: feeder("Feeder 1 - Irisan"),
		CreatedAt: "2024-03-15T06:30:00+08:00",
		Latitude:  16.4208, Longitude: 120.5633,
		ImageURL: "https://storage.beacon.example/announcement-images/0001.jpg",
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000002", Type: "unscheduled", Status: "Reported",
		Barangay: "Loakan Proper", AreasAffected: domain.LocalityList{"Loakan"},
		Description: "Residents report a transformer explosion.",
		Location:    "Loakan Road", Cause: "Transformer explosion",
		FeederID: float64(3), Feeders: feeder("Feeder 3 - Loakan"),
		CreatedAt: "2024-03-15T07:45:00+08:00",
		Latitude:  16.3795, Longitude: 120.6157,
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000003", Type: "scheduled", Status: "Scheduled",
		Barangay: "Irisan", AreasAffected: domain.LocalityList{"Irisan", "Pinsao Proper"},
		Description: "Preventive maintenance of the Irisan line.",
		Location:    "Irisan Road", Cause: "Line maintenance",
		FeederID: float64(1), Feeders: feeder("Feeder 1 - Irisan"),
		ScheduledAt:            "2024-03-18T08:00:00+08:00",
		EstimatedRestorationAt: "2024-03-18T17:00:00+08:00",
		CreatedAt:              "2024-03-10T09:00:00+08:00",
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000004", Type: "scheduled", Status: "Scheduled",
		Barangay: "Session Road Area", AreasAffected: domain.LocalityList{"Kabayanihan", "Session Road Area"},
		Description: "Replacement of rotten poles along Session Road.",
		Location:    "Session Road", Cause: "Pole replacement",
		FeederID: float64(2), Feeders: feeder("Feeder 2 - Session"),
		ScheduledAt:            "2024-03-20T09:00:00+08:00",
		EstimatedRestorationAt: "2024-03-20T13:00:00+08:00",
		CreatedAt:              "2024-03-11T10:00:00+08:00",
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000005", Type: "scheduled", Status: "Completed",
		Barangay: "Irisan", AreasAffected: domain.LocalityList{"Irisan"},
		Description: "Substation upgrade finished ahead of schedule.",
		Location:    "Irisan Substation", Cause: "Substation upgrade",
		FeederID: float64(1), Feeders: feeder("Feeder 1 - Irisan"),
		ScheduledAt: "2024-03-05T08:00:00+08:00",
		CreatedAt:   "2024-03-01T08:00:00+08:00",
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000006", Type: "unscheduled", Status: "Completed",
		Barangay: "Kabayanihan", AreasAffected: domain.LocalityList{},
		Description: "Power restored after a tripped breaker.",
		Location:    "Harrison Road", Cause: "Tripped breaker",
		FeederID: float64(2), Feeders: feeder("Feeder 2 - Session"),
		CreatedAt: "2024-03-14T20:00:00+08:00",
		Latitude:  16.4119, Longitude: 120.5960,
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000007", Type: "unscheduled", Status: "Ongoing",
		Barangay: "Kabayanihan", AreasAffected: domain.LocalityList{"Session Road Area"},
		Description: "Outage affecting the upper half of Session Road.",
		Location:    "Session Road",
		FeederID:    float64(2), Feeders: feeder("Feeder 2 - Session"),
		CreatedAt: "2024-03-15T08:10:00+08:00",
		Latitude:  16.4119, Longitude: 120.5960,
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000008", Type: "unscheduled", Status: "Reported",
		AreasAffected: domain.LocalityList{"Camp 7"},
		Description:   "A truck hit a pole along Kennon Road.",
		Location:      "Kennon Road", Cause: "Vehicular accident",
		CreatedAt: "2024-03-15T09:00:00+08:00",
		Latitude:  "16.3720", Longitude: "120.6010",
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000009", Type: "unscheduled", Status: "ongoing",
		Barangay: "Pinsao Proper", AreasAffected: domain.LocalityList{},
		Description: "Intermittent power in Pinsao.",
		FeederID:    float64(1), Feeders: feeder("Feeder 1 - Irisan"),
		CreatedAt: "2024-03-15T05:00:00+08:00",
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000010", Type: "scheduled", Status: "Scheduled",
		Barangay: "Camp 7", AreasAffected: domain.LocalityList{"Camp 7", "Kennon Road"},
		Description: "Line rerouting for the Kennon Road widening.",
		Cause:       "Line rerouting",
		FeederID:    float64(3), Feeders: feeder("Feeder 3 - Loakan"),
		ScheduledAt:            "2024-03-18T13:00:00+08:00",
		EstimatedRestorationAt: "2024-03-18T15:00:00+08:00",
		CreatedAt:              "2024-03-12T08:00:00+08:00",
	},
	{
		ID: "0b5c6a52-1d1a-4e57-9d8e-000000000011", Type: "unscheduled", Status: "Ongoing",
		Barangay: "Kabayanihan", AreasAffected: domain.LocalityList{"Kabayanihan"},
		Description: "Underground cable fault near the market.",
		Location:    "Harrison Road", Cause: "Cable fault",
		FeederID: float64(2), Feeders: feeder("Feeder 2 - Session"),
		CreatedAt: "2024-03-15T08:40:00+08:00",
		Latitude:  16.4119, Longitude: 120.5960,
	},
}
