// Package models holds the documents of the Report domain.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"optometry_report/internal/answer"
)

// EyeBankCategories are the two fixed eyeBank rows, in order.
var EyeBankCategories = [2]string{"Eye Bank", "Eye Collection Centre"}

// MaxVisionCenters caps the visionCenter table.
const MaxVisionCenters = 10

// EyeBankRow is one eyeBank category with its five monthly metrics.
type EyeBankRow struct {
	Name         string  `json:"name" bson:"name"`
	Collected    float64 `json:"collected" bson:"collected"`
	Keratoplasty float64 `json:"keratoplasty" bson:"keratoplasty"`
	OtherUse     float64 `json:"otherUse" bson:"otherUse"`
	Discarded    float64 `json:"discarded" bson:"discarded"`
	Pledged      float64 `json:"pledged" bson:"pledged"`
}

// VisionCenterRow is one sub-centre with its five monthly metrics.
type VisionCenterRow struct {
	Name                 string  `json:"name" bson:"name"`
	Screened             float64 `json:"screened" bson:"screened"`
	RefractiveErrors     float64 `json:"refractiveErrors" bson:"refractiveErrors"`
	SpectaclesPrescribed float64 `json:"spectaclesPrescribed" bson:"spectaclesPrescribed"`
	CataractDetected     float64 `json:"cataractDetected" bson:"cataractDetected"`
	Referred             float64 `json:"referred" bson:"referred"`
}

// Report is one institution's monthly submission (reports).
type Report struct {
	ID                   primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	District             string                 `json:"district" bson:"district" index:"single:1"`                                   // Free text
	Institution          string                 `json:"institution" bson:"institution"`                                               // Free text, subject to aliases
	DistrictKey          string                 `json:"districtKey,omitempty" bson:"districtKey,omitempty" index:"single:1"`         // Normalized district
	InstitutionKey       string                 `json:"institutionKey,omitempty" bson:"institutionKey,omitempty" index:"single:1"`   // Canonical institution key
	Month                string                 `json:"month" bson:"month"`                                                           // Full English month name
	Year                 FlexYear               `json:"year" bson:"year"`                                                             // "2025" (legacy rows hold a number)
	Answers              map[string]interface{} `json:"answers" bson:"answers"`                                                       // q1..q84 → count
	Cumulative           map[string]float64     `json:"cumulative,omitempty" bson:"cumulative,omitempty"`                             // Stored running total
	CumulativeComputedAt *time.Time             `json:"cumulativeComputedAt,omitempty" bson:"cumulativeComputedAt,omitempty"`
	EyeBank              []EyeBankRow           `json:"eyeBank,omitempty" bson:"eyeBank,omitempty"`
	VisionCenter         []VisionCenterRow      `json:"visionCenter,omitempty" bson:"visionCenter,omitempty"`
	Locked               bool                   `json:"locked" bson:"locked"`
	CreatedAt            time.Time              `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt            time.Time              `json:"updatedAt,omitempty" bson:"updatedAt,omitempty" index:"single:1,order:-1"`
}

// Vector is the report's answers as an 84-slot vector.
func (r *Report) Vector() answer.Vector {
	return answer.FromMap(r.Answers)
}

// HasCumulative reports whether the document carries a stored snapshot.
func (r *Report) HasCumulative() bool {
	return len(r.Cumulative) > 0
}

// Recency is updatedAt, else createdAt, else the Unix epoch.
func (r *Report) Recency() time.Time {
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt
	}
	return time.Unix(0, 0).UTC()
}
