package service

import (
	"context"
	"strings"

	"github.com/airflowiq/hub/internal/errors"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// ProfileService reads and updates display names
type ProfileService struct {
	profiles repository.ProfileRepository
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return s.profiles.Get(ctx, userID)
}

// UpdateName sets the display name; it must not be blank
func (s *ProfileService) UpdateName(ctx context.Context, userID, fullName string) (*models.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, errors.NewValidationError("full name cannot be empty", nil)
	}
	if err := s.profiles.UpdateFullName(ctx, userID, fullName); err != nil {
		return nil, err
	}
	nuts.L.Infof("[ProfileService] Updated profile name for %s", userID)
	return &models.Profile{ID: userID, FullName: fullName}, nil
}
