package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
	"github.com/aryan0dhankhar/onboardhr/internal/security"
	"github.com/aryan0dhankhar/onboardhr/pkg/cache"
)

const organizationCacheTTL = 5 * time.Minute

// OrganizationService serves the caller's tenant record. Organizations are
// immutable after setup so reads are cached.
type OrganizationService struct {
	orgs   domain.OrganizationRepository
	authz  *security.AuthorizationService
	cache  *cache.Cache[*domain.Organization]
	logger *slog.Logger
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgs domain.OrganizationRepository, logger *slog.Logger) *OrganizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrganizationService{
		orgs:   orgs,
		authz:  security.NewAuthorizationService(logger),
		cache:  cache.New[*domain.Organization](),
		logger: logger,
	}
}

// Get returns the organization the principal belongs to
func (s *OrganizationService) Get(ctx context.Context, p domain.Principal) (*domain.Organization, error) {
	if err := s.authz.RequireRole(p, domain.RoleAdmin, domain.RoleEmployee); err != nil {
		return nil, err
	}
	org, err := s.cache.GetOrLoad(ctx, "org:"+p.OrganizationID, organizationCacheTTL, func(ctx context.Context) (*domain.Organization, error) {
		return s.orgs.GetByID(ctx, p.OrganizationID)
	})
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateTenantAccess(p, org.ID); err != nil {
		return nil, err
	}
	return org, nil
}
