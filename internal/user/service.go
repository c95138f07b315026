package user

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/account-api/internal/apperr"
	"github.com/redmonkez12/account-api/internal/logging"
	"github.com/redmonkez12/account-api/internal/media"
)

var (
	ErrProfileNotFound  = apperr.New(apperr.NotFound, "user not found")
	ErrProfilePrivate   = apperr.New(apperr.Forbidden, "this profile is private")
	ErrAvatarRequired   = apperr.New(apperr.Validation, "avatar file is required")
	ErrVisibilityNeeded = apperr.New(apperr.Validation, "is_public is required")
)

// Service implements profile reads and updates
type Service struct {
	repo   *Repository
	images media.Store
	logger *logging.Logger
}

func NewService(repo *Repository, images media.Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, images: images, logger: logger}
}

// Current returns the profile of the authenticated user
func (s *Service) Current(u *User) *Profile {
	return u.Profile()
}

// UpdateDetails replaces name, bio and phone. All three are required.
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, name, bio, phone string) (*Profile, error) {
	name, bio, phone = strings.TrimSpace(name), strings.TrimSpace(bio), strings.TrimSpace(phone)

	var missing []string
	if name == "" {
		missing = append(missing, "name is required")
	}
	if bio == "" {
		missing = append(missing, "bio is required")
	}
	if phone == "" {
		missing = append(missing, "phone is required")
	}
	if len(missing) > 0 {
		return nil, apperr.WithDetails(apperr.Validation, "all fields are required", missing...)
	}

	updated, err := s.repo.UpdateProfile(ctx, id, ProfileUpdate{Name: &name, Bio: &bio, Phone: &phone})
	if err != nil {
		return nil, s.mapErr(err, "failed to update account details")
	}
	return updated.Profile(), nil
}

// UpdateAvatar uploads a new image, points the profile at it and removes
// the previous image from storage.
func (s *Service) UpdateAvatar(ctx context.Context, id uuid.UUID, file io.Reader, filename, contentType string) (*Profile, error) {
	if file == nil {
		return nil, ErrAvatarRequired
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "failed to get user")
	}

	uploaded, err := s.images.Upload(ctx, file, filename, contentType)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to upload avatar", err)
	}

	updated, err := s.repo.UpdateProfile(ctx, id, ProfileUpdate{AvatarURL: &uploaded.URL})
	if err != nil {
		if _, delErr := s.images.Delete(ctx, uploaded.URL); delErr != nil {
			s.logger.Warn("failed to remove orphaned avatar", "url", uploaded.URL, "error", delErr)
		}
		return nil, s.mapErr(err, "failed to update avatar")
	}

	if current.AvatarURL != "" {
		if _, err := s.images.Delete(ctx, current.AvatarURL); err != nil {
			s.logger.Warn("failed to delete previous avatar", "user_id", id, "url", current.AvatarURL, "error", err)
		}
	}

	s.logger.Info("avatar updated", "user_id", id)
	return updated.Profile(), nil
}

// SetVisibility makes the profile public or private
func (s *Service) SetVisibility(ctx context.Context, id uuid.UUID, isPublic bool) (*Profile, error) {
	updated, err := s.repo.UpdateProfile(ctx, id, ProfileUpdate{IsPublic: &isPublic})
	if err != nil {
		return nil, s.mapErr(err, "failed to update visibility")
	}
	return updated.Profile(), nil
}

// GetProfile returns targetID's profile as seen by viewer. Private profiles
// are visible only to their owner and to admins.
func (s *Service) GetProfile(ctx context.Context, viewer *User, targetID uuid.UUID) (*Profile, error) {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, s.mapErr(err, "failed to get user")
	}

	if !target.IsPublic {
		if viewer == nil || (viewer.ID != target.ID && !viewer.IsAdmin) {
			return nil, ErrProfilePrivate
		}
	}

	return target.Profile(), nil
}

// ListProfiles returns every profile, newest first. Callers must be admins.
func (s *Service) ListProfiles(ctx context.Context) ([]*Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internalf("failed to list users", err)
	}

	profiles := make([]*Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

func (s *Service) mapErr(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return ErrProfileNotFound
	}
	return apperr.Internalf(msg, err)
}
