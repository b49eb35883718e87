package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"laptopkita/internal/logging"
	"laptopkita/internal/server/models"
	"laptopkita/internal/server/repos"
)

var ErrNotFound = repos.ErrNotFound

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type CreateInput struct {
	Title     string
	Brand     string
	Price     string
	UserEmail string
	Image     []byte
}

type Image struct {
	Data        []byte
	ContentType string
}

var maxPrice = decimal.NewFromInt(1 << 53)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type CatalogService struct {
	repo   *repos.LaptopRepo
	images *repos.ImageStore
	log    *logging.Logger
	now    func() time.Time
}

func NewCatalogService(repo *repos.LaptopRepo, images *repos.ImageStore, log *logging.Logger) *CatalogService {
	if log == nil {
		log = logging.Discard()
	}
	return &CatalogService{repo: repo, images: images, log: log, now: time.Now}
}

func (s *CatalogService) Create(ctx context.Context, in CreateInput) (*models.Laptop, error) {
	title := strings.TrimSpace(in.Title)
	brand := strings.TrimSpace(in.Brand)
	email := strings.TrimSpace(in.UserEmail)
	switch {
	case title == "":
		return nil, &ValidationError{Field: "title", Reason: "is required"}
	case brand == "":
		return nil, &ValidationError{Field: "brand", Reason: "is required"}
	case email == "":
		return nil, &ValidationError{Field: "user_email", Reason: "is required"}
	}
	price, err := parsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if len(in.Image) == 0 {
		return nil, &ValidationError{Field: "file", Reason: "is required"}
	}
	if mt := mimetype.Detect(in.Image); !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return nil, &ValidationError{Field: "file", Reason: "must be an image, got " + mt.String()}
	}

	imageID := uuid.NewString()
	if err := s.images.Put(imageID, in.Image); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	l := &models.Laptop{
		Title:     title,
		Brand:     brand,
		Price:     price,
		UserEmail: email,
		CreatedAt: s.now().UTC().Truncate(time.Second),
		ImageID:   imageID,
	}
	if err := s.repo.Insert(ctx, l); err != nil {
		_ = s.images.Remove(imageID)
		return nil, fmt.Errorf("insert laptop: %w", err)
	}
	s.log.WithField("user_email", email).Infof("created laptop %d", l.ID)
	return l, nil
}

// List returns ErrNotFound when the owner has no laptops.
func (s *CatalogService) List(ctx context.Context, email string) ([]models.Laptop, error) {
	items, err := s.repo.ListByOwner(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items, nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64, email string) error {
	email = strings.TrimSpace(email)
	var imageID string
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		l, err := s.repo.GetTx(ctx, tx, id, email)
		if err != nil {
			return err
		}
		imageID = l.ImageID
		return s.repo.DeleteTx(ctx, tx, id, email)
	})
	if err != nil {
		return err
	}
	if inUse, err := s.repo.ImageInUse(ctx, imageID); err == nil && !inUse {
		if err := s.images.Remove(imageID); err != nil {
			s.log.WithError(err).Warnf("remove image %s", imageID)
		}
	}
	s.log.WithField("user_email", email).Infof("deleted laptop %d", id)
	return nil
}

func (s *CatalogService) Image(ctx context.Context, imageID string) (*Image, error) {
	if _, err := uuid.Parse(imageID); err != nil {
		return nil, ErrNotFound
	}
	data, err := s.images.Get(imageID)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, ContentType: mimetype.Detect(data).String()}, nil
}

// parsePrice accepts a non-negative whole amount such as "1500000" or "1500000.00".
func parsePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: "price", Reason: "is required"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, &ValidationError{Field: "price", Reason: "must be a number"}
	}
	if d.IsNegative() {
		return 0, &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if !d.IsInteger() {
		return 0, &ValidationError{Field: "price", Reason: "must be a whole amount"}
	}
	if d.GreaterThan(maxPrice) {
		return 0, &ValidationError{Field: "price", Reason: "is too large"}
	}
	return d.IntPart(), nil
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
