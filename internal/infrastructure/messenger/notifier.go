package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/studenthealthcard/registration/internal/registration/domain"
)

// FailureStore keeps notifications that exhausted their retries.
type FailureStore interface {
	Save(ctx context.Context, registrationID, destination, text string, attempts int, cause error) error
}

// Config defines the gateway the notifier posts to.
type Config struct {
	Endpoint     string
	Destination  string
	AdminBaseURL string
	Attempts     int
	RetryDelay   time.Duration
	HTTPClient   *http.Client
	Failures     FailureStore
	Logger       zerolog.Logger
}

// Notifier posts new-registration messages to the messenger gateway in the background.
type Notifier struct {
	endpoint     string
	destination  string
	adminBaseURL string
	attempts     int
	retryDelay   time.Duration
	httpClient   *http.Client
	failures     FailureStore
	logger       zerolog.Logger
	pending      sync.WaitGroup
}

// NewNotifier returns nil when no destination is configured.
func NewNotifier(cfg Config) *Notifier {
	if strings.TrimSpace(cfg.Destination) == "" || strings.TrimSpace(cfg.Endpoint) == "" {
		return nil
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 3
	}
	return &Notifier{
		endpoint:     strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		destination:  strings.TrimSpace(cfg.Destination),
		adminBaseURL: strings.TrimRight(strings.TrimSpace(cfg.AdminBaseURL), "/"),
		attempts:     attempts,
		retryDelay:   cfg.RetryDelay,
		httpClient:   client,
		failures:     cfg.Failures,
		logger:       cfg.Logger,
	}
}

// RegistrationReceived schedules delivery and returns immediately.
func (n *Notifier) RegistrationReceived(ctx context.Context, registration domain.Registration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)

	n.pending.Add(1)
	go func() {
		defer n.pending.Done()
		if err := n.Deliver(ctx, registration); err != nil {
			n.logger.Warn().Err(err).Str("registration", registration.ID).Msg("admin notification failed")
		}
	}()
	return nil
}

// Wait blocks until scheduled deliveries finish.
func (n *Notifier) Wait() {
	n.pending.Wait()
}

// Deliver sends the message with retries and records a failure when every attempt fails.
func (n *Notifier) Deliver(ctx context.Context, registration domain.Registration) error {
	text := BuildAdminMessage(n.adminBaseURL, registration)
	identifier := registration.ID
	if identifier == "" {
		identifier = "admin"
	}

	err := n.sendWithRetry(ctx, identifier, text)
	if err == nil {
		return nil
	}

	if n.failures != nil {
		if saveErr := n.failures.Save(ctx, registration.ID, n.destination, text, n.attempts, err); saveErr != nil {
			n.logger.Error().Err(saveErr).Msg("persist failed notification")
		}
	}
	return err
}

// BuildAdminMessage renders the staff-facing summary of a registration.
func BuildAdminMessage(adminBaseURL string, r domain.Registration) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("New student health card registration from **%s**\n", r.Name))
	b.WriteString(fmt.Sprintf("- Email: %s\n", r.Email))
	b.WriteString(fmt.Sprintf("- Phone: %s\n", r.Phone))
	if strings.TrimSpace(r.Institution) != "" {
		b.WriteString(fmt.Sprintf("- Institution: %s\n", r.Institution))
	}
	if strings.TrimSpace(r.StudentID) != "" {
		b.WriteString(fmt.Sprintf("- Student ID: %s\n", r.StudentID))
	}
	if message := strings.TrimSpace(r.Message); message != "" {
		b.WriteString(fmt.Sprintf("- Message: %s\n", message))
	}
	if r.ID != "" && adminBaseURL != "" {
		b.WriteString(fmt.Sprintf("[Open in admin](%s/%s)\n", adminBaseURL, r.ID))
	}
	return b.String()
}

// sendWithRetry calls send up to n.attempts times, pausing retryDelay between tries.
func (n *Notifier) sendWithRetry(ctx context.Context, userID, text string) error {
	var lastErr error
	for i := 0; i < n.attempts; i++ {
		lastErr = n.send(ctx, userID, text)
		if lastErr == nil {
			return nil
		}
		if n.retryDelay > 0 && i < n.attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.retryDelay):
			}
		}
	}
	return lastErr
}

// send posts one message to the gateway; 4xx and 5xx replies are errors.
func (n *Notifier) send(ctx context.Context, userID, text string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("userID is required")
	}

	body, err := json.Marshal(map[string]string{
		"userId":      userID,
		"text":        text,
		"destination": n.destination,
	})
	if err != nil {
		return fmt.Errorf("encode messenger payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build messenger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("messenger request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("messenger returned status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}
	return nil
}
