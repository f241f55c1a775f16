// Package models defines the client-side data model of the matching engine:
// candidates, decisions, reconciliation results, matches and chat messages.
package models

// Candidate is a profile presented for an accept/reject decision. It is
// immutable once fetched.
type Candidate struct {
	ID          string
	DisplayName string
	Age         int
	PhotoURL    string

	// DistanceKm is nil when the backend did not annotate a distance.
	DistanceKm *float64

	Bio  string
	City string
}

// Filter narrows the discovery listing. Zero values mean "no constraint".
type Filter struct {
	RadiusKm    int      `json:"radius_km,omitempty"`
	CityID      string   `json:"city,omitempty"`
	InterestIDs []string `json:"interests,omitempty"`
}
