package models

import (
	"math"
	"time"
)

// Grade bounds for a rating.
const (
	MinGrade = 1
	MaxGrade = 5
)

type Rating struct {
	ID        int64     `json:"-" gorm:"primaryKey;autoIncrement"`
	BookID    int64     `json:"-" gorm:"not null;uniqueIndex:idx_ratings_book_user"`
	UserID    string    `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_ratings_book_user"`
	Grade     int       `json:"grade" gorm:"not null;check:grade >= 1 AND grade <= 5"`
	CreatedAt time.Time `json:"-" gorm:"autoCreateTime"`
}

func (Rating) TableName() string {
	return "ratings"
}

// AverageGrade returns the arithmetic mean of all grades rounded to one
// decimal place, or 0 when there are no ratings.
func AverageGrade(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Grade
	}
	avg := float64(sum) / float64(len(ratings))
	return math.Round(avg*10) / 10
}
