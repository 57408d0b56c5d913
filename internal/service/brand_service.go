package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pesio-ai/be-brand-navigator/internal/client"
	"github.com/pesio-ai/be-brand-navigator/internal/errors"
	"github.com/pesio-ai/be-brand-navigator/internal/logger"
	"github.com/pesio-ai/be-brand-navigator/internal/repository"
	"github.com/pesio-ai/be-brand-navigator/internal/status"
)

// BrandStore persists brands and applies status transitions.
type BrandStore interface {
	Create(ctx context.Context, brand *repository.Brand, entry *repository.StatusHistoryEntry) error
	GetByID(ctx context.Context, id string) (*repository.Brand, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*repository.Brand, int64, error)
	Transition(ctx context.Context, id string, from, to status.BrandStatus, entry *repository.StatusHistoryEntry) (*repository.Brand, error)
	Delete(ctx context.Context, id string) error
}

// HistoryStore reads the status history of a brand.
type HistoryStore interface {
	GetByBrandID(ctx context.Context, brandID string) ([]*repository.StatusHistoryEntry, error)
}

// EventPublisherInterface publishes lifecycle events. Implementations must
// not fail the caller.
type EventPublisherInterface interface {
	PublishBrandEvent(ctx context.Context, event *client.BrandEvent)
}

// BrandService handles the brand lifecycle: creation, forward progress,
// confirmed reverts and navigation for the wizard UI.
type BrandService struct {
	brands    BrandStore
	history   HistoryStore
	publisher EventPublisherInterface
	devMode   bool
	log       *logger.Logger
}

// NewBrandService creates a new brand service
func NewBrandService(
	brands BrandStore,
	history HistoryStore,
	publisher EventPublisherInterface,
	devMode bool,
	log *logger.Logger,
) *BrandService {
	return &BrandService{
		brands:    brands,
		history:   history,
		publisher: publisher,
		devMode:   devMode,
		log:       log,
	}
}

// CreateBrandRequest represents a create brand request
type CreateBrandRequest struct {
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

// Validate checks the request fields.
func (r CreateBrandRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OwnerID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
	)
}

// ProgressBrandRequest advances a brand by one stage. ExpectedStatus, when
// set, must match the stored status so a stale client cannot skip a stage.
type ProgressBrandRequest struct {
	ID             string `json:"id"`
	ExpectedStatus string `json:"expected_status,omitempty"`
	ActedBy        string `json:"-"`
}

// Validate checks the request fields.
func (r ProgressBrandRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.ExpectedStatus, validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if s == "" {
				return nil
			}
			if _, ok := status.Parse(s); !ok {
				return validation.NewError("brand.expected_status.unknown", "is not a known status")
			}
			return nil
		})),
	)
}

// RevertBrandRequest moves a brand back to the stage shown at Step in the
// progress display. Confirmed must be true.
type RevertBrandRequest struct {
	ID        string `json:"id"`
	Step      int    `json:"step"`
	Confirmed bool   `json:"confirmed"`
	ActedBy   string `json:"-"`
}

// Validate checks the request fields.
func (r RevertBrandRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Confirmed, validation.By(func(value interface{}) error {
			if confirmed, _ := value.(bool); !confirmed {
				return validation.NewError("brand.revert.unconfirmed", "revert must be confirmed")
			}
			return nil
		})),
	)
}

// NavigationView is what the wizard UI needs to pick a screen.
type NavigationView struct {
	BrandID string             `json:"brand_id"`
	Status  status.BrandStatus `json:"status"`
	Route   string             `json:"route"`
	Step    int                `json:"step"`
	Known   bool               `json:"known"`
	DevMode bool               `json:"dev_mode"`
	Steps   []status.StepInfo  `json:"steps"`
}

// DevMode reports whether the dev-only payment stage is surfaced.
func (s *BrandService) DevMode() bool { return s.devMode }

// CreateBrand creates a brand at the first lifecycle stage.
func (s *BrandService) CreateBrand(ctx context.Context, req *CreateBrandRequest) (*repository.Brand, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	brand := &repository.Brand{
		OwnerID:       req.OwnerID,
		Name:          req.Name,
		CurrentStatus: status.NewBrand,
	}
	entry := &repository.StatusHistoryEntry{
		Action:      repository.ActionCreated,
		StatusAfter: status.NewBrand,
		PerformedBy: req.OwnerID,
	}

	if err := s.brands.Create(ctx, brand, entry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("brand_id", brand.ID).
		Str("owner_id", brand.OwnerID).
		Msg("Brand created")

	return brand, nil
}

// GetBrand retrieves a brand by ID
func (s *BrandService) GetBrand(ctx context.Context, id string) (*repository.Brand, error) {
	if id == "" {
		return nil, errors.InvalidInput("id", "is required")
	}
	return s.brands.GetByID(ctx, id)
}

// ListBrands lists an owner's brands with optional status filter and pagination.
func (s *BrandService) ListBrands(ctx context.Context, ownerID string, statusFilter *string, page, pageSize int) ([]*repository.Brand, int64, error) {
	if ownerID == "" {
		return nil, 0, errors.InvalidInput("owner_id", "is required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	filter := repository.ListFilter{
		OwnerID: ownerID,
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
	}
	if statusFilter != nil {
		st, ok := status.Parse(*statusFilter)
		if !ok {
			return nil, 0, errors.InvalidInput("status", "is not a known status")
		}
		filter.Status = &st
	}

	return s.brands.List(ctx, filter)
}

// ProgressBrand advances the brand to the next stage of the lifecycle.
func (s *BrandService) ProgressBrand(ctx context.Context, req *ProgressBrandRequest) (*repository.Brand, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	brand, err := s.brands.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	current := brand.CurrentStatus
	if !current.IsValid() {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot progress brand with unrecognized status '%s'", current))
	}
	if req.ExpectedStatus != "" && status.BrandStatus(req.ExpectedStatus) != current {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot progress brand from '%s', current status is '%s'", req.ExpectedStatus, current))
	}

	next, ok := status.Next(current, s.devMode)
	if !ok {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot progress brand with status '%s'", current))
	}

	updated, err := s.brands.Transition(ctx, brand.ID, current, next, &repository.StatusHistoryEntry{
		Action:       repository.ActionProgressed,
		StatusBefore: &current,
		StatusAfter:  next,
		PerformedBy:  req.ActedBy,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("brand_id", brand.ID).
		Str("status_before", string(current)).
		Str("status_after", string(next)).
		Str("acted_by", req.ActedBy).
		Msg("Brand progressed")

	s.publish(ctx, "progressed", updated, current, req.ActedBy, nil)
	return updated, nil
}

// RevertBrand moves the brand back to the stage shown at req.Step. Later-stage
// work is discarded by the consumers of the "reverted" event.
func (s *BrandService) RevertBrand(ctx context.Context, req *RevertBrandRequest) (*repository.Brand, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	brand, err := s.brands.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	current := brand.CurrentStatus
	target := status.StatusForStepNumber(req.Step)

	if status.StageFor(target).DevOnly && !s.devMode {
		return nil, errors.InvalidInput("step", fmt.Sprintf("step %d is not available", req.Step))
	}
	if !current.IsValid() || status.Compare(target, current) >= 0 {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot revert brand with status '%s' to '%s'", current, target))
	}

	updated, err := s.brands.Transition(ctx, brand.ID, current, target, &repository.StatusHistoryEntry{
		Action:       repository.ActionReverted,
		StatusBefore: &current,
		StatusAfter:  target,
		PerformedBy:  req.ActedBy,
		Metadata:     map[string]interface{}{"step": req.Step},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("brand_id", brand.ID).
		Str("status_before", string(current)).
		Str("status_after", string(target)).
		Int("step", req.Step).
		Str("acted_by", req.ActedBy).
		Msg("Brand reverted")

	s.publish(ctx, "reverted", updated, current, req.ActedBy, map[string]interface{}{"step": req.Step})
	return updated, nil
}

// Navigation returns the screen and progress ordinal for a brand.
func (s *BrandService) Navigation(ctx context.Context, id string) (*NavigationView, error) {
	brand, err := s.GetBrand(ctx, id)
	if err != nil {
		return nil, err
	}

	nav := status.NewNavigation(brand.ID, brand.CurrentStatus, s.devMode)
	if !nav.Known() {
		s.log.Warn().
			Str("brand_id", brand.ID).
			Str("status", string(brand.CurrentStatus)).
			Msg("Unrecognized brand status, routing to first stage")
	}

	return &NavigationView{
		BrandID: brand.ID,
		Status:  brand.CurrentStatus,
		Route:   nav.Route(),
		Step:    nav.Step(),
		Known:   nav.Known(),
		DevMode: s.devMode,
		Steps:   nav.Steps(),
	}, nil
}

// History returns the status history of a brand.
func (s *BrandService) History(ctx context.Context, id string) ([]*repository.StatusHistoryEntry, error) {
	if _, err := s.GetBrand(ctx, id); err != nil {
		return nil, err
	}
	return s.history.GetByBrandID(ctx, id)
}

// ListSteps describes the progress display for the configured mode.
func (s *BrandService) ListSteps() []status.StepInfo {
	visible := status.Visible(s.devMode)
	out := make([]status.StepInfo, 0, len(visible))
	for _, st := range visible {
		out = append(out, status.StepInfo{
			Number:     status.StepNumberForStatus(st.Status, s.devMode),
			Status:     st.Status,
			Title:      st.Title,
			Revertible: status.IsRevertible(st.Status),
		})
	}
	return out
}

// DeleteBrand deletes a brand and its history.
func (s *BrandService) DeleteBrand(ctx context.Context, id string) error {
	if id == "" {
		return errors.InvalidInput("id", "is required")
	}
	if err := s.brands.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("brand_id", id).Msg("Brand deleted")
	return nil
}

func (s *BrandService) publish(ctx context.Context, eventType string, brand *repository.Brand, before status.BrandStatus, actor string, payload map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	nav := status.NewNavigation(brand.ID, brand.CurrentStatus, s.devMode)
	s.publisher.PublishBrandEvent(ctx, &client.BrandEvent{
		EventType:    eventType,
		BrandID:      brand.ID,
		OwnerID:      brand.OwnerID,
		ActorID:      actor,
		StatusBefore: string(before),
		StatusAfter:  string(brand.CurrentStatus),
		Route:        nav.Route(),
		Step:         nav.Step(),
		OccurredAt:   brand.UpdatedAt,
		Payload:      payload,
	})
}

// validationError converts ozzo validation errors into an invalid-input error
// naming the first failing field.
func validationError(err error) error {
	verrs, ok := err.(validation.Errors)
	if !ok || len(verrs) == 0 {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request")
	}

	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return errors.InvalidInput(fields[0], verrs[fields[0]].Error())
}
