package link

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"

	"github.com/linklite/linklite/codegen"
	"github.com/linklite/linklite/internal/errx"
)

const (
	MaxURLLength          = 2048
	DefaultCodeMaxRetries = 5
)

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	DestinationURL string
	CustomAlias    string // Optional: if empty, a short code will be generated
	OwnerID        string
}

// Service defines the business logic operations for short links.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (Link, error)
	Resolve(ctx context.Context, code string) (Link, error)
	ByID(ctx context.Context, id uuid.UUID) (Link, error)
	ByOwner(ctx context.Context, ownerID string) ([]Link, error)
}

// service implements the Service interface.
type service struct {
	store          Store
	codeGenerator  codegen.Generator
	codeLength     int
	codeMaxRetries int
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator  codegen.Generator
	CodeLength     int
	CodeMaxRetries int // attempts when generating a unique code (default: 5)
}

// NewService creates a new service instance.
func NewService(store Store, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	codeGen := config.CodeGenerator
	if codeGen == nil {
		codeGen = codegen.NewBase62()
	}

	codeLength := config.CodeLength
	if codeLength <= 0 {
		codeLength = codegen.DefaultCodeLength
	}

	retries := config.CodeMaxRetries
	if retries <= 0 {
		retries = DefaultCodeMaxRetries
	}

	return &service{
		store:          store,
		codeGenerator:  codeGen,
		codeLength:     codeLength,
		codeMaxRetries: retries,
	}
}

// Create creates a new short link with an optional custom alias.
// Uniqueness is decided at the store, never by a separate pre-check:
// the alias path does one atomic insert, and the generated path
// retries with a fresh random code on each unique-constraint conflict.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (Link, error) {
	const op = "link.service.Create"

	if err := validateURL(req.DestinationURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	// Custom alias path: validate and create once
	if req.CustomAlias != "" {
		if err := codegen.ValidateAlias(req.CustomAlias); err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}

		created, err := s.store.Create(ctx, Link{
			DestinationURL: req.DestinationURL,
			ShortCode:      req.CustomAlias,
			OwnerID:        req.OwnerID,
		})
		if err != nil {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
		return created, nil
	}

	// Generated code path: retry on conflicts
	for range s.codeMaxRetries {
		code, err := s.codeGenerator.Generate(s.codeLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := s.store.Create(ctx, Link{
			DestinationURL: req.DestinationURL,
			ShortCode:      code,
			OwnerID:        req.OwnerID,
		})
		if err == nil {
			return created, nil
		}

		// Retry on conflict, fail on other errors
		if errx.KindOf(err) != errx.Conflict {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return Link{}, errx.E(op, errx.ResourceExhausted,
		errors.New("could not generate unique short code after retries"))
}

// Resolve returns the link for a short code. It is stateless and does
// not record the visit; the caller hands metadata to the click
// recorder after the redirect decision is made.
func (s *service) Resolve(ctx context.Context, code string) (Link, error) {
	const op = "link.service.Resolve"

	if code == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("short code cannot be empty"))
	}

	link, err := s.store.ByShortCode(ctx, code)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

func (s *service) ByID(ctx context.Context, id uuid.UUID) (Link, error) {
	const op = "link.service.ByID"

	if id == uuid.Nil {
		return Link{}, errx.E(op, errx.Invalid, errors.New("link id cannot be empty"))
	}

	link, err := s.store.ByID(ctx, id)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

func (s *service) ByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "link.service.ByOwner"

	if ownerID == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("owner id cannot be empty"))
	}

	links, err := s.store.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}
