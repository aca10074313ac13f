package models

import (
	"time"

	"gorm.io/gorm"
)

// ReviewModel is a user-submitted review of a place. Text may be blank and
// CreatedAt may be absent for imported rows.
type ReviewModel struct {
	ID        string     `json:"id"         bson:"_id"        gorm:"type:char(36);primaryKey"`
	PlaceID   string     `json:"place_id"   bson:"place_id"   gorm:"type:varchar(191);not null;index:idx_reviews_place_created,priority:1"`
	Text      string     `json:"text"       bson:"text"       gorm:"type:text"`
	CreatedAt *time.Time `json:"created_at" bson:"created_at" gorm:"autoCreateTime:false;index:idx_reviews_place_created,priority:2"`
}

func (ReviewModel) TableName() string { return "reviews" }

// BeforeCreate assigns an id to reviews created without one.
func (r *ReviewModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	return nil
}
