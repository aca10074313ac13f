package models

import "time"

// PlaceSummaryModel caches the generated accessibility summary of a place
// together with the review fingerprint it was generated from.
type PlaceSummaryModel struct {
	PlaceID              string     `json:"place_id"                bson:"_id"                     gorm:"type:varchar(191);primaryKey"`
	Summary              string     `json:"summary"                 bson:"summary"                 gorm:"type:text;not null"`
	Model                string     `json:"model"                   bson:"model"                   gorm:"type:varchar(128)"`
	UpdatedAt            time.Time  `json:"updated_at"              bson:"updated_at"              gorm:"autoUpdateTime:false"`
	SourceReviewCount    int        `json:"source_review_count"     bson:"source_review_count"     gorm:"not null"`
	SourceLatestReviewAt *time.Time `json:"source_latest_review_at" bson:"source_latest_review_at"`
}

func (PlaceSummaryModel) TableName() string { return "place_summaries" }
