package services

import (
	"errors"
	"fmt"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

// ErrInvalidCredentials is returned by login and refresh; the HTTP layer
// answers 401 for it.
var ErrInvalidCredentials = errors.New("invalid credentials")

// fromRepo turns repository errors into the caller-facing taxonomy. Errors
// that already carry a kind pass through untouched.
func fromRepo(err error, what string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, err, what+" not found")
	case errors.Is(err, repo.ErrNotParty):
		return apperr.Wrap(apperr.Unauthorized, err, "not a party to this exchange")
	case errors.Is(err, repo.ErrInsufficientCredits):
		return apperr.Wrap(apperr.PaymentRequired, err, "no credit left to spend")
	case errors.Is(err, repo.ErrDuplicate):
		return apperr.Wrap(apperr.Conflict, err, what+" already exists")
	}
	return fmt.Errorf("%s: %w", what, err)
}
