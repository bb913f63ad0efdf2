package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"priyom/internal/domain"
	"priyom/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// RegisterRequest is the input for a new owner account.
type RegisterRequest struct {
	Name            string `json:"name"`
	Specialization  string `json:"specialization"`
	ExperienceYears int    `json:"experience_years"`
	ContactInfo     string `json:"contact_info"`
	Email           string `json:"email"`
	Password        string `json:"password"`
}

type OwnerService struct {
	store          domain.OwnerStore
	reservations   domain.ReservationStore
	tokens         domain.SecretGenerator
	clock          domain.Clock
	defaultWindows []models.WindowTemplate
	bcryptCost     int
	logger         *zerolog.Logger
}

func NewOwnerService(
	store domain.OwnerStore,
	reservations domain.ReservationStore,
	tokens domain.SecretGenerator,
	defaultWindows []models.WindowTemplate,
	logger *zerolog.Logger,
) *OwnerService {
	return &OwnerService{
		store:          store,
		reservations:   reservations,
		tokens:         tokens,
		clock:          SystemClock{},
		defaultWindows: defaultWindows,
		bcryptCost:     bcrypt.DefaultCost,
		logger:         logger,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *OwnerService) WithBcryptCost(cost int) *OwnerService {
	s.bcryptCost = cost
	return s
}

func (s *OwnerService) WithClock(clock domain.Clock) *OwnerService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Register creates the owner and the default weekly windows atomically. The
// returned owner carries its management token.
func (s *OwnerService) Register(ctx context.Context, req RegisterRequest) (*models.Owner, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", domain.ErrStorage, err)
	}
	token, err := s.tokens.NewSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: generate management token: %w", domain.ErrStorage, err)
	}

	owner := &models.Owner{
		Name:            strings.TrimSpace(req.Name),
		Specialization:  strings.TrimSpace(req.Specialization),
		ExperienceYears: req.ExperienceYears,
		ContactInfo:     strings.TrimSpace(req.ContactInfo),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:    string(hash),
		ManagementToken: token,
	}

	windows := make([]*models.AvailabilityWindow, 0, len(s.defaultWindows))
	for _, tpl := range s.defaultWindows {
		windows = append(windows, &models.AvailabilityWindow{
			Weekday:   tpl.Weekday,
			StartTime: tpl.StartTime,
			EndTime:   tpl.EndTime,
		})
	}

	if err := s.store.CreateOwnerWithWindows(ctx, owner, windows, s.clock.Now()); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("owner_id", owner.ID).Int("windows", len(windows)).Msg("owner registered")
	return owner, nil
}

// ListOwners returns public profiles only.
func (s *OwnerService) ListOwners(ctx context.Context) ([]models.Owner, error) {
	owners, err := s.store.ListOwners(ctx)
	if err != nil {
		return nil, err
	}
	public := make([]models.Owner, 0, len(owners))
	for _, o := range owners {
		public = append(public, o.Public())
	}
	return public, nil
}

// UpdateProfile applies patch to the credential owner's profile.
func (s *OwnerService) UpdateProfile(ctx context.Context, credential string, patch models.OwnerPatch) (*models.Owner, error) {
	ownerID, err := s.store.OwnerIDByToken(ctx, credential)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
	}
	if patch.ExperienceYears != nil && *patch.ExperienceYears < 0 {
		return nil, fmt.Errorf("%w: experience_years must not be negative", domain.ErrValidation)
	}

	owner, err := s.store.UpdateOwner(ctx, ownerID, patch, s.clock.Now())
	if err != nil {
		return nil, err
	}
	public := owner.Public()
	return &public, nil
}

// OwnerReservations lists the credential owner's reservations in [from, to), newest first.
func (s *OwnerService) OwnerReservations(ctx context.Context, credential string, from, to time.Time) (*models.Owner, []*models.Reservation, error) {
	ownerID, err := s.store.OwnerIDByToken(ctx, credential)
	if err != nil {
		return nil, nil, err
	}
	if !from.Before(to) {
		return nil, nil, fmt.Errorf("%w: from must be before to", domain.ErrValidation)
	}

	owner, err := s.store.GetOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	reservations, err := s.reservations.ListOwnerReservations(ctx, ownerID, from, to)
	if err != nil {
		return nil, nil, err
	}
	return owner, reservations, nil
}

func validateRegistration(req RegisterRequest) error {
	var problems []string
	if strings.TrimSpace(req.Name) == "" {
		problems = append(problems, "name is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		problems = append(problems, "email is invalid")
	}
	if len(req.Password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if req.ExperienceYears < 0 {
		problems = append(problems, "experience_years must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
