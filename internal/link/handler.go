package link

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linklite/linklite/codegen"
	"github.com/linklite/linklite/internal/click"
	"github.com/linklite/linklite/internal/errx"
	"github.com/linklite/linklite/internal/httpx"
)

// OwnerIDHeader carries the opaque owner identifier supplied by the
// external identity collaborator.
const OwnerIDHeader = "X-Owner-ID"

const maxOwnerIDLength = 128

// clickRecorder is the handoff point for click capture. Record must be
// fire-and-forget: the resolve path never awaits it.
type clickRecorder interface {
	Record(meta click.RequestMeta)
}

// clickSummarizer provides the aggregate read model for a link.
type clickSummarizer interface {
	Summarize(ctx context.Context, linkID uuid.UUID) (click.Summary, error)
}

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	URL         string `json:"url"`
	CustomAlias string `json:"custom_alias,omitempty"`
}

// LinkResponse represents the JSON response for a link.
type LinkResponse struct {
	ID             string `json:"id"`
	ShortCode      string `json:"short_code"`
	DestinationURL string `json:"destination_url"`
	ShortURL       string `json:"short_url"`
	CreatedAt      string `json:"created_at"`
}

// StatsResponse represents the JSON response for link analytics.
type StatsResponse struct {
	LinkID    string           `json:"link_id"`
	ShortCode string           `json:"short_code"`
	Total     int64            `json:"total"`
	ByDevice  map[string]int64 `json:"by_device"`
	ByCountry map[string]int64 `json:"by_country"`
}

// Handler provides HTTP handlers for the short-link service.
type Handler struct {
	service    Service
	recorder   clickRecorder
	summarizer clickSummarizer
	logger     *slog.Logger
	baseURL    string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service    Service
	Recorder   clickRecorder
	Summarizer clickSummarizer
	Logger     *slog.Logger
	BaseURL    string // Base URL for constructing short URLs (e.g., "https://lk.lt")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service:    cfg.Service,
		recorder:   cfg.Recorder,
		summarizer: cfg.Summarizer,
		logger:     logger,
		baseURL:    cfg.BaseURL,
	}
}

// CreateLink handles POST requests to create a new short link.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if req.URL == "" {
		logger.WarnContext(ctx, "request validation failed", "error", "url is required")
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "url is required", nil)
		return
	}

	link, err := h.service.Create(ctx, CreateLinkRequest{
		DestinationURL: req.URL,
		CustomAlias:    req.CustomAlias,
		OwnerID:        ownerID(r),
	})
	if err != nil {
		h.handleCreateError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "link created successfully",
		"link_id", link.ID.String(),
		"short_code", link.ShortCode,
		"custom_alias", req.CustomAlias != "",
	)

	httpx.WriteJSON(w, http.StatusCreated, h.linkResponse(link))
}

// ResolveLink handles GET requests to resolve a short code and redirect
// to the destination URL. The click record is handed to the recorder
// after the redirect decision and never awaited: redirect latency is
// one store lookup, independent of analytics.
func (h *Handler) ResolveLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	code := extractCodeFromPath(r.URL.Path)
	if code == "" {
		logger.WarnContext(ctx, "missing short code in path")
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "short code is required", nil)
		return
	}

	if len(code) > codegen.MaxAliasLength {
		logger.WarnContext(ctx, "invalid short code format", "short_code", code)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "invalid link", nil)
		return
	}

	link, err := h.service.Resolve(ctx, code)
	if err != nil {
		h.handleResolveError(ctx, w, err, code)
		return
	}

	if h.recorder != nil {
		h.recorder.Record(click.RequestMeta{
			LinkID:     link.ID,
			UserAgent:  r.UserAgent(),
			RemoteIP:   clientIP(r),
			OccurredAt: time.Now().UTC(),
		})
	}

	logger.InfoContext(ctx, "short code resolved",
		"short_code", code,
		"destination_url", link.DestinationURL,
	)

	http.Redirect(w, r, link.DestinationURL, http.StatusFound)
}

// ListLinks handles GET requests for all links belonging to the
// requesting owner.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner := ownerID(r)
	if owner == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("%s header is required", OwnerIDHeader), nil)
		return
	}

	links, err := h.service.ByOwner(ctx, owner)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list links",
			"error", err.Error(),
			"operation", errx.OpOf(err),
		)
		httpx.WriteError(w, httpx.ErrorKindToStatus(errx.KindOf(err)),
			httpx.ErrorKindToCode(errx.KindOf(err)), "Unable to list links at this time", nil)
		return
	}

	resp := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		resp = append(resp, h.linkResponse(l))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// LinkStats handles GET requests for a link's click analytics summary.
func (h *Handler) LinkStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"path", r.URL.Path,
	)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		logger.WarnContext(ctx, "invalid link id", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid link id", nil)
		return
	}

	link, err := h.service.ByID(ctx, id)
	if err != nil {
		kind := errx.KindOf(err)
		if kind == errx.NotFound {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "link doesn't exist", nil)
			return
		}
		logger.ErrorContext(ctx, "failed to load link", "error", err.Error())
		httpx.WriteError(w, httpx.ErrorKindToStatus(kind), httpx.ErrorKindToCode(kind),
			"Unable to load link analytics at this time", nil)
		return
	}

	summary, err := h.summarizer.Summarize(ctx, id)
	if err != nil {
		kind := errx.KindOf(err)
		logger.ErrorContext(ctx, "failed to summarize clicks",
			"error", err.Error(),
			"link_id", id.String(),
		)
		httpx.WriteError(w, httpx.ErrorKindToStatus(kind), httpx.ErrorKindToCode(kind),
			"Unable to load link analytics at this time", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, StatsResponse{
		LinkID:    link.ID.String(),
		ShortCode: link.ShortCode,
		Total:     summary.Total,
		ByDevice:  summary.ByDevice,
		ByCountry: summary.ByCountry,
	})
}

// handleCreateError handles errors from the Create service method.
func (h *Handler) handleCreateError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Conflict:
		h.logger.WarnContext(ctx, "alias conflict", logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"This alias is already taken",
			map[string]string{
				"hint": "Try a different custom alias or let us generate a code for you",
			})

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	case errx.ResourceExhausted:
		h.logger.ErrorContext(ctx, "code generation exhausted", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "resource_exhausted",
			"Could not allocate a short code. Please retry the request.", nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, "service unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to create short link at this time. Please try again.", nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error creating link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to create short link at this time. Please try again.", nil)
	}
}

// handleResolveError handles errors from the Resolve service method.
func (h *Handler) handleResolveError(ctx context.Context, w http.ResponseWriter, err error, code string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"short_code", code,
	}

	switch kind {
	case errx.NotFound:
		h.logger.WarnContext(ctx, "short code not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"short link doesn't exist", nil)

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid short code", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", err.Error(), nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error resolving link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to resolve this link at this time", nil)
	}
}

func (h *Handler) linkResponse(l Link) LinkResponse {
	return LinkResponse{
		ID:             l.ID.String(),
		ShortCode:      l.ShortCode,
		DestinationURL: l.DestinationURL,
		ShortURL:       fmt.Sprintf("%s/%s", h.baseURL, l.ShortCode),
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
	}
}

// ownerID extracts the opaque owner identifier supplied by the identity
// collaborator. Empty means anonymous.
func ownerID(r *http.Request) string {
	owner := strings.TrimSpace(r.Header.Get(OwnerIDHeader))
	if len(owner) > maxOwnerIDLength {
		owner = owner[:maxOwnerIDLength]
	}
	return owner
}

// clientIP extracts the network origin for geolocation, preferring the
// first X-Forwarded-For entry when the service sits behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractCodeFromPath extracts the short code from a URL path.
// For example, "/abc123" returns "abc123".
func extractCodeFromPath(path string) string {
	path = strings.TrimPrefix(path, "/")

	// If path contains more segments (e.g., "/s/abc123"), take the last one
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
