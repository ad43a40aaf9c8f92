package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/observability/metrics"
	"github.com/aryan0dhankhar/onboardhr/internal/observability/tracing"
	"github.com/aryan0dhankhar/onboardhr/internal/reliability/retry"
	"github.com/aryan0dhankhar/onboardhr/internal/security"
	"github.com/aryan0dhankhar/onboardhr/internal/security/audit"
	"github.com/aryan0dhankhar/onboardhr/internal/security/auth"
)

const (
	DefaultInvitationTTL = 7 * 24 * time.Hour
	mutationAttempts     = 3
)

// InvitationQueue hands invitation emails to the asynchronous notification dispatcher.
// Enqueue reports false when the message was dropped.
type InvitationQueue interface {
	Enqueue(ctx context.Context, msg domain.InvitationMessage) bool
}

// EmployeeServiceConfig tunes the employee lifecycle
type EmployeeServiceConfig struct {
	InvitationTTL           time.Duration
	FrontendURL             string
	StrictStatusTransitions bool
}

// EmployeeService implements the employee lifecycle: invitation, registration,
// activation, archive and soft delete, plus listing and self-service
type EmployeeService struct {
	employees domain.EmployeeRepository
	orgs      domain.OrganizationRepository
	tokens    *auth.TokenManager
	hasher    auth.PasswordHasher
	authz     *security.AuthorizationService
	queue     InvitationQueue
	events    domain.EventPublisher
	audit     *audit.Logger
	validate  *validator.Validate
	retryCfg  *retry.Config
	cfg       EmployeeServiceConfig
	now       func() time.Time
	newSecret func() (string, error)
	logger    *slog.Logger
}

// NewEmployeeService creates a new employee service. queue and events may be nil.
func NewEmployeeService(
	employees domain.EmployeeRepository,
	orgs domain.OrganizationRepository,
	tokens *auth.TokenManager,
	hasher auth.PasswordHasher,
	queue InvitationQueue,
	events domain.EventPublisher,
	auditLog *audit.Logger,
	cfg EmployeeServiceConfig,
	logger *slog.Logger,
) *EmployeeService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = DefaultInvitationTTL
	}

	return &EmployeeService{
		employees: employees,
		orgs:      orgs,
		tokens:    tokens,
		hasher:    hasher,
		authz:     security.NewAuthorizationService(logger),
		queue:     queue,
		events:    events,
		audit:     auditLog,
		validate:  newValidator(),
		retryCfg: &retry.Config{
			MaxAttempts:       mutationAttempts,
			InitialBackoff:    10 * time.Millisecond,
			MaxBackoff:        100 * time.Millisecond,
			BackoffMultiplier: 2.0,
			ShouldRetry: func(err error) bool {
				return errors.Is(err, domain.ErrConcurrentUpdate)
			},
		},
		cfg:       cfg,
		now:       time.Now,
		newSecret: auth.NewInvitationSecret,
		logger:    logger,
	}
}

// SetClock replaces the time source; used by tests
func (s *EmployeeService) SetClock(now func() time.Time) {
	s.now = now
}

// SetSecretSource replaces the invitation secret generator; used by tests
func (s *EmployeeService) SetSecretSource(fn func() (string, error)) {
	s.newSecret = fn
}

func (s *EmployeeService) requireAdmin(p domain.Principal) error {
	return s.authz.RequireRole(p, domain.RoleAdmin)
}

// mutate runs load -> transition -> compare-and-swap save for one employee and
// retries the whole cycle when another writer won the race. A pending invitation
// found past its expiry is flipped first and persisted even if fn rejects.
func (s *EmployeeService) mutate(ctx context.Context, op string, orgID, id string, fn func(e *domain.Employee, now time.Time) error) (*domain.Employee, error) {
	return s.mutateWith(ctx, op, orgID, id, fn, s.employees.Update)
}

func (s *EmployeeService) mutateWith(
	ctx context.Context,
	op string,
	orgID, id string,
	fn func(e *domain.Employee, now time.Time) error,
	save func(ctx context.Context, e *domain.Employee) error,
) (*domain.Employee, error) {
	ctx, span := tracing.Start(ctx, "employee."+op)
	defer span.End()

	var expired bool
	e, err := retry.Do(ctx, s.retryCfg, s.logger, op, func(ctx context.Context) (*domain.Employee, error) {
		e, err := s.employees.GetByID(ctx, orgID, id)
		if err != nil {
			return nil, err
		}
		now := s.now()
		flipped := e.ExpireInvitation(now)
		if err := fn(e, now); err != nil {
			if flipped {
				s.persistExpiry(ctx, orgID, id)
			}
			return nil, err
		}
		if err := save(ctx, e); err != nil {
			return nil, err
		}
		expired = flipped
		return e, nil
	})
	if expired {
		s.expired(ctx, e)
	}
	result := "success"
	if err != nil {
		result = "failed"
		span.RecordError(err)
	}
	metrics.ObserveLifecycle(op, result)
	return e, err
}

// persistExpiry saves an observed invitation expiry on its own. Best effort:
// the next read flips it again if this write loses a race.
func (s *EmployeeService) persistExpiry(ctx context.Context, orgID, id string) {
	e, err := s.employees.GetByID(ctx, orgID, id)
	if err != nil {
		return
	}
	if !e.ExpireInvitation(s.now()) {
		return
	}
	if err := s.employees.Update(ctx, e); err != nil {
		s.logger.Warn("failed to persist invitation expiry",
			slog.String("employee_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	s.expired(ctx, e)
}

// observe applies lazy expiry to a record that was just read
func (s *EmployeeService) observe(ctx context.Context, e *domain.Employee) *domain.Employee {
	if !e.InvitationDue(s.now()) {
		return e
	}
	fresh, err := s.mutate(ctx, "expire_invitation", e.OrganizationID, e.ID, func(*domain.Employee, time.Time) error {
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to persist invitation expiry",
			slog.String("employee_id", e.ID),
			slog.String("error", err.Error()),
		)
		e.ExpireInvitation(s.now())
		return e
	}
	return fresh
}

func (s *EmployeeService) expired(ctx context.Context, e *domain.Employee) {
	metrics.ObserveInvitationExpired()
	s.logger.Info("invitation expired",
		slog.String("organization_id", e.OrganizationID),
		slog.String("employee_id", e.ID),
	)
	s.publish(ctx, domain.EventEmployeeInvitationExpired, e, "", nil)
}

// publish is best effort; sinks must never undo a committed mutation
func (s *EmployeeService) publish(ctx context.Context, t domain.EventType, e *domain.Employee, actorID string, data map[string]string) {
	if s.events == nil {
		return
	}
	event := domain.Event{
		Type:           t,
		OrganizationID: e.OrganizationID,
		EmployeeID:     e.ID,
		ActorID:        actorID,
		At:             s.now(),
		Data:           data,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			slog.String("type", string(t)),
			slog.String("employee_id", e.ID),
			slog.String("error", err.Error()),
		)
	}
}
