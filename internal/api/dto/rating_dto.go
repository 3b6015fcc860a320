package dto

// CreateRatingDTO for submitting a grade. Range checking lives in the
// book service so the rejection message is the domain one.
type CreateRatingDTO struct {
	Grade int `json:"grade" binding:"required"`
}
