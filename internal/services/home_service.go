package services

import (
	"context"
	"strings"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

type HomeService struct{ r repo.Homes }

func NewHomeService(r repo.Homes) *HomeService { return &HomeService{r: r} }

type HomeInput struct {
	Title string `json:"title" validate:"required,max=200"`
	City  string `json:"city" validate:"required,max=100"`
}

func (s *HomeService) Create(ctx context.Context, ownerID string, in HomeInput) (models.Home, error) {
	h := models.Home{OwnerID: ownerID, Title: strings.TrimSpace(in.Title), City: strings.TrimSpace(in.City)}
	var fields []apperr.FieldError
	if h.Title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Msg: "required"})
	}
	if h.City == "" {
		fields = append(fields, apperr.FieldError{Field: "city", Msg: "required"})
	}
	if len(fields) > 0 {
		return models.Home{}, apperr.Invalid(fields...)
	}
	h, err := s.r.Create(ctx, h)
	return h, fromRepo(err, "home")
}

func (s *HomeService) Get(ctx context.Context, id string) (models.Home, error) {
	h, err := s.r.GetByID(ctx, id)
	return h, fromRepo(err, "home")
}

func (s *HomeService) List(ctx context.Context, limit, offset int) ([]models.Home, error) {
	limit, offset = clampPage(limit, offset)
	hs, err := s.r.List(ctx, limit, offset)
	if hs == nil {
		hs = []models.Home{}
	}
	return hs, fromRepo(err, "homes")
}

func (s *HomeService) ListByOwner(ctx context.Context, ownerID string) ([]models.Home, error) {
	hs, err := s.r.ListByOwner(ctx, ownerID)
	if hs == nil {
		hs = []models.Home{}
	}
	return hs, fromRepo(err, "homes")
}
