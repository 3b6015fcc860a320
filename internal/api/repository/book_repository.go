package repository

import (
	"context"
	"fmt"

	"grimoire/internal/api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	GetAll(ctx context.Context) ([]models.Book, error)
	GetTopRated(ctx context.Context, limit int) ([]models.Book, error)
	Save(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id int64) error
	AddRating(ctx context.Context, rating *models.Rating) (*models.Book, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).Preload("Ratings").First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepository) GetAll(ctx context.Context) ([]models.Book, error) {
	var list []models.Book
	if err := r.db.WithContext(ctx).Preload("Ratings").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return list, nil
}

// GetTopRated returns books ordered by average rating descending. Ties
// come back in storage order.
func (r *bookRepository) GetTopRated(ctx context.Context, limit int) ([]models.Book, error) {
	var list []models.Book
	if err := r.db.WithContext(ctx).
		Preload("Ratings").
		Order("average_rating DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list top rated books: %w", err)
	}
	return list, nil
}

// Save persists the caller-editable columns. AverageRating is omitted:
// that column is written only inside AddRating's transaction, so a book
// edit carrying a stale average read before a concurrent rating committed
// can never clobber the fresh value.
func (r *bookRepository) Save(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Omit("Ratings", "AverageRating").Save(book).Error; err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Select(clause.Associations).Delete(&models.Book{ID: id})
	if result.Error != nil {
		return fmt.Errorf("delete book: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddRating appends a rating and recomputes the book average in one
// transaction. The book row is locked for the duration so two concurrent
// raters serialize instead of overwriting each other's average. A repeat
// rater is caught against the locked row's ratings, with the composite
// unique index on (book_id, user_id) as the backstop; both surface as
// gorm.ErrDuplicatedKey.
func (r *bookRepository) AddRating(ctx context.Context, rating *models.Rating) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&book, rating.BookID).Error; err != nil {
			return err
		}

		if err := tx.Where("book_id = ?", rating.BookID).Find(&book.Ratings).Error; err != nil {
			return err
		}
		if book.HasRatingFrom(rating.UserID) {
			return gorm.ErrDuplicatedKey
		}

		if err := tx.Create(rating).Error; err != nil {
			return err
		}

		book.Ratings = append(book.Ratings, *rating)
		book.AverageRating = models.AverageGrade(book.Ratings)
		return tx.Model(&models.Book{}).
			Where("id = ?", book.ID).
			Update("average_rating", book.AverageRating).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}
