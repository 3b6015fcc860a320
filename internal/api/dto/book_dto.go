package dto

import (
	"grimoire/internal/api/models"
	"grimoire/internal/api/service"
)

// BookPayload is the JSON document carried in the multipart "book" form
// field (or the request body on image-less updates). The original client
// includes a userId property; there is deliberately no field for it here,
// so ownership can never be injected or transferred through a payload.
type BookPayload struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
}

func (p BookPayload) ToInput() service.BookInput {
	return service.BookInput{
		Title:  p.Title,
		Author: p.Author,
		Year:   p.Year,
		Genre:  p.Genre,
	}
}

// RatingResponse mirrors the embedded rating shape of the original API.
type RatingResponse struct {
	UserID string `json:"userId"`
	Grade  int    `json:"grade"`
}

// BookResponse is the public book representation. The image reference is
// stored as a bare filename and resolved to an absolute URL here, at the
// serving edge.
type BookResponse struct {
	ID            int64            `json:"id"`
	UserID        string           `json:"userId"`
	Title         string           `json:"title"`
	Author        string           `json:"author"`
	ImageURL      string           `json:"imageUrl"`
	Year          int              `json:"year"`
	Genre         string           `json:"genre"`
	Ratings       []RatingResponse `json:"ratings"`
	AverageRating float64          `json:"averageRating"`
}

// FromModelToBookResponse converts a Book model to its response shape.
func FromModelToBookResponse(b models.Book, publicBaseURL string) BookResponse {
	ratings := make([]RatingResponse, 0, len(b.Ratings))
	for _, r := range b.Ratings {
		ratings = append(ratings, RatingResponse{UserID: r.UserID, Grade: r.Grade})
	}

	return BookResponse{
		ID:            b.ID,
		UserID:        b.UserID,
		Title:         b.Title,
		Author:        b.Author,
		ImageURL:      publicBaseURL + "/images/" + b.ImageName,
		Year:          b.Year,
		Genre:         b.Genre,
		Ratings:       ratings,
		AverageRating: b.AverageRating,
	}
}

// FromModelsToBookResponses converts a book list in one pass.
func FromModelsToBookResponses(books []models.Book, publicBaseURL string) []BookResponse {
	resp := make([]BookResponse, 0, len(books))
	for _, b := range books {
		resp = append(resp, FromModelToBookResponse(b, publicBaseURL))
	}
	return resp
}
