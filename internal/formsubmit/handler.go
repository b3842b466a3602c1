package formsubmit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// diagnosticOutput receives failure details when no logger is configured.
var diagnosticOutput io.Writer = os.Stderr

// ErrSubmissionInFlight is returned by a guarded handler while a submission is pending.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// Handler bridges form submissions to POST /submit and renders the outcome on the page.
type Handler struct {
	page     Page
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
	guarded  bool
	inFlight atomic.Bool
	pending  sync.WaitGroup
}

// Option customises a Handler.
type Option func(*Handler)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(h *Handler) {
		if client != nil {
			h.client = client
		}
	}
}

// WithLogger sets the diagnostic channel failures are recorded to.
// The default writes info and above to stderr.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithInFlightGuard rejects new submissions until the pending one settles.
// Without it overlapping submissions run independently and the last to settle wins.
func WithInFlightGuard() Option {
	return func(h *Handler) {
		h.guarded = true
	}
}

// NewHandler builds a handler posting to SubmitPath resolved against origin.
func NewHandler(page Page, origin string, opts ...Option) (*Handler, error) {
	if page == nil {
		return nil, errors.New("page is required")
	}
	endpoint, err := ResolveLocation(origin, SubmitPath)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		page:     page,
		endpoint: endpoint,
		client:   http.DefaultClient,
		logger:   zerolog.New(diagnosticOutput).Level(zerolog.InfoLevel).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Endpoint returns the absolute URL submissions are posted to.
func (h *Handler) Endpoint() string {
	return h.endpoint
}

// Attach registers the handler as the form's submit listener.
func (h *Handler) Attach(form FormTarget) {
	form.OnSubmit(func(ev SubmitEvent) {
		if _, err := h.HandleSubmit(context.Background(), ev); err != nil {
			h.logger.Debug().Err(err).Msg("submit ignored")
		}
	})
}

// HandleSubmit prevents the event's default, snapshots the fields and sends them
// in the background. It returns as soon as the request has been started.
func (h *Handler) HandleSubmit(ctx context.Context, ev SubmitEvent) (*Submission, error) {
	if ev != nil {
		ev.PreventDefault()
	}
	if h.guarded && !h.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Submission{
		ID:      uuid.NewString(),
		Payload: Collect(h.page),
		done:    make(chan struct{}),
	}

	h.pending.Add(1)
	go h.run(ctx, s)
	return s, nil
}

// Wait blocks until every started submission has settled.
func (h *Handler) Wait() {
	h.pending.Wait()
}

// run settles one submission: it navigates on a redirect, renders the message
// otherwise, and falls back to the generic error text on any failure.
func (h *Handler) run(ctx context.Context, s *Submission) {
	defer h.pending.Done()
	defer close(s.done)
	if h.guarded {
		defer h.inFlight.Store(false)
	}
	defer func() {
		if r := recover(); r != nil {
			h.fail(s, fmt.Errorf("settle submission: %v", r))
		}
	}()

	outcome, err := h.transmit(ctx, s.Payload)
	if err == nil && outcome.Kind == OutcomeRedirect {
		err = h.page.Navigate(outcome.Location)
		if err != nil {
			err = fmt.Errorf("navigate to %q: %w", outcome.Location, err)
		}
	}
	if err != nil {
		h.fail(s, err)
		return
	}
	if outcome.Kind == OutcomeMessage {
		h.page.SetTextContent(ResponseMessageID, outcome.Text)
	}

	s.outcome = outcome
	h.logger.Debug().
		Str("submission", s.ID).
		Stringer("outcome", outcome.Kind).
		Msg("submission settled")
}

// fail records err with the submission and shows the fallback message.
func (h *Handler) fail(s *Submission, err error) {
	s.err = err
	h.logger.Error().Err(err).Str("submission", s.ID).Str("endpoint", h.endpoint).Msg("registration submit failed")
	h.page.SetTextContent(ResponseMessageID, FallbackMessage)
}

// transmit posts the payload as JSON and decodes the reply body.
func (h *Handler) transmit(ctx context.Context, payload Payload) (Outcome, error) {
	body, err := payload.MarshalJSON()
	if err != nil {
		return Outcome{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := h.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("post %s: %w", h.endpoint, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("read response (status %d): %w", res.StatusCode, err)
	}
	outcome, err := ParseOutcome(raw)
	if err != nil {
		return Outcome{}, fmt.Errorf("status %d: %w", res.StatusCode, err)
	}
	return outcome, nil
}

// Submission tracks one submit from request to settlement.
type Submission struct {
	ID      string
	Payload Payload

	done    chan struct{}
	outcome Outcome
	err     error
}

// Done is closed once the page has been updated.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Result returns the rendered outcome, or the error that produced the fallback
// message. Only valid after Done is closed.
func (s *Submission) Result() (Outcome, error) {
	<-s.done
	return s.outcome, s.err
}

// ResolveLocation resolves a location the way a page at origin would.
func ResolveLocation(origin, location string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", fmt.Errorf("parse origin %q: %w", origin, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("origin %q must be an absolute URL", origin)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse location %q: %w", location, err)
	}
	return base.ResolveReference(ref).String(), nil
}
