package tenants

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mycms-backend/internal/docstore"
	"github.com/angelmondragon/mycms-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

// Service manages tenant documents outside the order lifecycle.
type Service struct {
	repo   *Repository
	logger *logger.Logger
	locker docstore.Locker
	now    func() time.Time
	newID  func() string
}

// Option configures optional service behavior.
type Option func(*Service)

// WithLocker makes document writes take the tenant lock shared with checkout
// and payment callbacks.
func WithLocker(locker docstore.Locker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

func NewService(repo *Repository, logg *logger.Logger, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("tenant repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	s := &Service{
		repo:   repo,
		logger: logg,
		locker: docstore.NopLocker{},
		now:    time.Now,
		newID:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// CreateOrLogin returns the tenant's document, creating an empty one on first login.
func (s *Service) CreateOrLogin(ctx context.Context, email string) (*Document, error) {
	normalized, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	key := docstore.TenantKey(normalized)
	ctx = s.logger.WithTenant(ctx, key)

	release, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	doc, err := s.repo.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		return doc, nil
	}

	doc = &Document{
		ID:      s.newID(),
		Email:   normalized,
		Created: s.now().UTC(),
	}
	if err := s.repo.Save(ctx, key, doc); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "tenant created")
	return doc, nil
}

// GetDocument returns the stored document or TENANT_NOT_FOUND.
func (s *Service) GetDocument(ctx context.Context, email string) (*Document, error) {
	normalized, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	return s.repo.Load(ctx, docstore.TenantKey(normalized))
}

// PutDocument replaces the tenant's document wholesale. The stored id and
// creation time are kept and the email is forced to the normalized key.
func (s *Service) PutDocument(ctx context.Context, email string, doc *Document) (*Document, error) {
	normalized, err := validateEmail(email)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant document is required")
	}
	if body := docstore.NormalizeEmail(doc.Email); body != "" && body != normalized {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document email does not match tenant").
			WithDetails(map[string]any{"email": body})
	}
	if err := enums.ValidatePaymentMode(doc.Settings.PayPal.Mode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if err := validateProducts(doc.Products); err != nil {
		return nil, err
	}

	key := docstore.TenantKey(normalized)
	ctx = s.logger.WithTenant(ctx, key)

	release, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	stored, err := s.repo.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	next := *doc
	next.ID = stored.ID
	next.Created = stored.Created
	next.Email = normalized
	if err := s.repo.Save(ctx, key, &next); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "tenant document stored")
	return &next, nil
}

func (s *Service) release(ctx context.Context, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "failed to release tenant lock")
	}
}

func validateEmail(email string) (string, error) {
	normalized := docstore.NormalizeEmail(email)
	if normalized == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is invalid").
			WithDetails(map[string]any{"email": normalized})
	}
	return normalized, nil
}

func validateProducts(products []Product) error {
	seen := make(map[string]struct{}, len(products))
	var problems []string
	for i, p := range products {
		id := strings.TrimSpace(p.ProductID)
		switch {
		case id == "":
			problems = append(problems, fmt.Sprintf("products[%d].productId is required", i))
		case IsReservedProductID(id):
			problems = append(problems, fmt.Sprintf("products[%d].productId %s is reserved for a storefront page", i, id))
		default:
			if _, dup := seen[id]; dup {
				problems = append(problems, fmt.Sprintf("products[%d].productId %s is duplicated", i, id))
			}
			seen[id] = struct{}{}
		}
		if p.RegularPrice.IsNegative() || (p.SellPrice.Valid && p.SellPrice.Decimal.IsNegative()) || p.Tax.IsNegative() {
			problems = append(problems, fmt.Sprintf("products[%d] prices must not be negative", i))
		}
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid products").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}
