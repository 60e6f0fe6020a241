package contact

import (
	"context"
	"strings"
	"time"

	"github.com/harvestlink/agrimarket/pkg/db/models"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

type store interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
}

type limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Validator checks an inquiry and returns a validation error with per-field details.
type Validator func(v any) error

// ServiceParams groups dependencies for the contact service.
type ServiceParams struct {
	Repo      store
	Limiter   limiter
	Validate  Validator
	Logger    *logger.Logger
	RateLimit int
	Window    time.Duration
}

// Service accepts contact inquiries.
type Service interface {
	Submit(ctx context.Context, clientIP string, in Inquiry) (Receipt, error)
}

type service struct {
	repo     store
	limiter  limiter
	validate Validator
	logg     *logger.Logger
	limit    int64
	window   time.Duration
	now      func() time.Time
}

// NewService builds the contact service. A nil limiter disables rate limiting.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact repo is required")
	}
	if params.Validate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validator is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:     params.Repo,
		limiter:  params.Limiter,
		validate: params.Validate,
		logg:     params.Logger,
		limit:    int64(params.RateLimit),
		window:   params.Window,
		now:      time.Now,
	}, nil
}

// Submit validates, rate limits and stores an inquiry.
func (s *service) Submit(ctx context.Context, clientIP string, in Inquiry) (Receipt, error) {
	in = normalize(in)
	if err := s.validate(&in); err != nil {
		return Receipt{}, err
	}
	if err := s.allow(ctx, clientIP); err != nil {
		return Receipt{}, err
	}

	msg := &models.ContactMessage{
		Name:      in.Name,
		Email:     in.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		ClientIP:  clientIP,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return Receipt{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store contact message")
	}

	s.logg.Info(s.logg.WithField(ctx, "contact_id", msg.ID.String()), "contact message received")
	return Receipt{ID: msg.ID, CreatedAt: msg.CreatedAt}, nil
}

func (s *service) allow(ctx context.Context, clientIP string) error {
	if s.limiter == nil || s.limit <= 0 || s.window <= 0 || clientIP == "" {
		return nil
	}
	ok, _, err := s.limiter.FixedWindowAllow(ctx, "contact:"+clientIP, s.limit, s.window)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "contact rate limit check failed")
		return nil
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many messages, try again later")
	}
	return nil
}

func normalize(in Inquiry) Inquiry {
	return Inquiry{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
	}
}
