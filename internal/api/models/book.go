package models

import "time"

// Book is a catalog entry owned by the user who created it. The JSON
// field names match the payloads the frontend already speaks.
type Book struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        string    `json:"userId" gorm:"type:uuid;not null;index"`
	Title         string    `json:"title" gorm:"not null"`
	Author        string    `json:"author" gorm:"not null"`
	ImageName     string    `json:"-" gorm:"not null"`
	Year          int       `json:"year" gorm:"not null"`
	Genre         string    `json:"genre" gorm:"not null"`
	AverageRating float64   `json:"averageRating" gorm:"not null;default:0;type:decimal(2,1)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// association
	Ratings []Rating `json:"ratings" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;"`
}

func (Book) TableName() string {
	return "books"
}

// IsOwnedBy reports whether the book was created by the given user.
func (b *Book) IsOwnedBy(userID string) bool {
	return b.UserID == userID
}

// HasRatingFrom reports whether the user already rated this book.
func (b *Book) HasRatingFrom(userID string) bool {
	for _, r := range b.Ratings {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
