package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"grimoire/internal/api/cache"
	"grimoire/internal/api/models"
	"grimoire/internal/api/repository"

	"gorm.io/gorm"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrNotOwner     = errors.New("not the book owner")
	ErrAlreadyRated = errors.New("book already rated by this user")
	ErrInvalidGrade = errors.New("grade must be between 1 and 5")
	ErrMissingImage = errors.New("image file is required")
	ErrInvalidImage = errors.New("unusable image file")
	ErrInvalidBook  = errors.New("invalid book")
)

// Books can't predate movable type.
const minYear = 1455

const bestRatedLimit = 3

// BookInput carries the caller-editable fields of a book. The owning user
// id is deliberately absent: ownership comes from the verified token and
// can never be set or transferred through a payload.
type BookInput struct {
	Title  string
	Author string
	Year   int
	Genre  string
}

// ImageStore is the slice of the cover-image backend the service needs.
type ImageStore interface {
	Save(file *multipart.FileHeader) (string, error)
	Remove(filename string) error
}

type BookService interface {
	Create(ctx context.Context, ownerID string, in BookInput, image *multipart.FileHeader) (*models.Book, error)
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	GetAll(ctx context.Context) ([]models.Book, error)
	BestRated(ctx context.Context) ([]models.Book, error)
	Update(ctx context.Context, id int64, requesterID string, in BookInput, image *multipart.FileHeader) (*models.Book, error)
	Delete(ctx context.Context, id int64, requesterID string) error
	Rate(ctx context.Context, id int64, raterID string, grade int) (*models.Book, error)
}

type bookService struct {
	repo      repository.BookRepository
	images    ImageStore
	bestRated *cache.BestRatedCache
	logger    *slog.Logger
}

func NewBookService(repo repository.BookRepository, images ImageStore, bestRated *cache.BestRatedCache, logger *slog.Logger) BookService {
	return &bookService{
		repo:      repo,
		images:    images,
		bestRated: bestRated,
		logger:    logger,
	}
}

// Create stores a new book owned by ownerID. The cover is processed and
// written first; if the record then fails to persist the file is removed
// again so no orphan survives the request.
func (s *bookService) Create(ctx context.Context, ownerID string, in BookInput, image *multipart.FileHeader) (*models.Book, error) {
	if image == nil {
		return nil, ErrMissingImage
	}
	if err := validateBookInput(in); err != nil {
		return nil, err
	}
	in = sanitizeBookInput(in)

	filename, err := s.images.Save(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	book := &models.Book{
		UserID:        ownerID,
		Title:         in.Title,
		Author:        in.Author,
		ImageName:     filename,
		Year:          in.Year,
		Genre:         in.Genre,
		AverageRating: 0,
		Ratings:       []models.Rating{},
	}

	if err := s.repo.Create(ctx, book); err != nil {
		// compensate: the record never existed, so the file must not either
		if rmErr := s.images.Remove(filename); rmErr != nil {
			s.logger.Error("failed to remove image after create failure", "image", filename, "error", rmErr)
		}
		return nil, err
	}

	s.invalidateBestRated(ctx)
	return book, nil
}

func (s *bookService) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *bookService) GetAll(ctx context.Context) ([]models.Book, error) {
	return s.repo.GetAll(ctx)
}

// BestRated returns the top rated books, serving from the cache when it
// holds a fresh copy.
func (s *bookService) BestRated(ctx context.Context) ([]models.Book, error) {
	if books, err := s.bestRated.Get(ctx); err != nil {
		s.logger.Warn("best rated cache read failed", "error", err)
	} else if books != nil {
		return books, nil
	}

	books, err := s.repo.GetTopRated(ctx, bestRatedLimit)
	if err != nil {
		return nil, err
	}

	if err := s.bestRated.Set(ctx, books); err != nil {
		s.logger.Warn("best rated cache write failed", "error", err)
	}
	return books, nil
}

// Update replaces the caller-editable fields of a book the requester owns.
// When a new cover arrives it is committed with the record before the old
// file goes away, so the book never points at a missing image.
func (s *bookService) Update(ctx context.Context, id int64, requesterID string, in BookInput, image *multipart.FileHeader) (*models.Book, error) {
	book, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !book.IsOwnedBy(requesterID) {
		return nil, ErrNotOwner
	}
	if err := validateBookInput(in); err != nil {
		return nil, err
	}
	in = sanitizeBookInput(in)

	oldImage := ""
	if image != nil {
		filename, err := s.images.Save(image)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		oldImage = book.ImageName
		book.ImageName = filename
	}

	book.Title = in.Title
	book.Author = in.Author
	book.Year = in.Year
	book.Genre = in.Genre

	if err := s.repo.Save(ctx, book); err != nil {
		if image != nil {
			// the new file never made it into the record
			if rmErr := s.images.Remove(book.ImageName); rmErr != nil {
				s.logger.Error("failed to remove image after update failure", "image", book.ImageName, "error", rmErr)
			}
		}
		return nil, err
	}

	if oldImage != "" {
		s.removeImageAsync(oldImage)
	}

	s.invalidateBestRated(ctx)
	return book, nil
}

// Delete removes a book the requester owns. The record deletion decides
// the outcome; the cover cleanup is best-effort and never fails the call.
func (s *bookService) Delete(ctx context.Context, id int64, requesterID string) error {
	book, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !book.IsOwnedBy(requesterID) {
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	s.removeImageAsync(book.ImageName)
	s.invalidateBestRated(ctx)
	return nil
}

// Rate records a single grade from raterID and returns the book with its
// refreshed average. The append and the recomputation happen atomically in
// the repository, so concurrent raters cannot lose each other's grades.
func (s *bookService) Rate(ctx context.Context, id int64, raterID string, grade int) (*models.Book, error) {
	if grade < models.MinGrade || grade > models.MaxGrade {
		return nil, ErrInvalidGrade
	}

	rating := &models.Rating{
		BookID: id,
		UserID: raterID,
		Grade:  grade,
	}

	book, err := s.repo.AddRating(ctx, rating)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrBookNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrAlreadyRated
		}
		return nil, err
	}

	s.invalidateBestRated(ctx)
	return book, nil
}

func (s *bookService) invalidateBestRated(ctx context.Context) {
	if err := s.bestRated.Invalidate(ctx); err != nil {
		s.logger.Warn("best rated cache invalidation failed", "error", err)
	}
}

func (s *bookService) removeImageAsync(filename string) {
	go func() {
		if err := s.images.Remove(filename); err != nil {
			s.logger.Error("failed to remove old image", "image", filename, "error", err)
		}
	}()
}

func validateBookInput(in BookInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidBook)
	}
	if strings.TrimSpace(in.Author) == "" {
		return fmt.Errorf("%w: author is required", ErrInvalidBook)
	}
	if strings.TrimSpace(in.Genre) == "" {
		return fmt.Errorf("%w: genre is required", ErrInvalidBook)
	}
	if in.Year < minYear || in.Year > time.Now().Year() {
		return fmt.Errorf("%w: year must be between %d and %d", ErrInvalidBook, minYear, time.Now().Year())
	}
	return nil
}

// sanitizeBookInput trims and escapes markup-significant characters in the
// free-text fields before they reach the store. Values are rendered by a
// client this service does not control.
func sanitizeBookInput(in BookInput) BookInput {
	in.Title = sanitizeText(in.Title)
	in.Author = sanitizeText(in.Author)
	in.Genre = sanitizeText(in.Genre)
	return in
}

func sanitizeText(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
