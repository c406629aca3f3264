// Package contact captures contact-form submissions into the local inbox.
// Nothing is delivered over the network; messages stay in storage until an
// operator reads them or the retention worker prunes them.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mdnooraj/folio/internal/storage"
)

// Submission is the form payload. Fields are trimmed before validation.
type Submission struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Message string `json:"message" validate:"required,max=5000"`
}

func (s Submission) normalized() Submission {
	return Submission{
		Name:    strings.TrimSpace(s.Name),
		Email:   strings.TrimSpace(s.Email),
		Message: strings.TrimSpace(s.Message),
	}
}

// Receipt acknowledges a stored submission.
type Receipt struct {
	ID              string `json:"id"`
	Acknowledgement string `json:"acknowledgement"`
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// Messages maps field name to message, for form re-rendering.
func (e *ValidationError) Messages() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Message
	}
	return m
}

// Inbox is the storage the service writes to. Implemented by *storage.Store.
type Inbox interface {
	SaveContactMessage(ctx context.Context, m storage.ContactMessage) error
}

// Service validates and stores submissions.
type Service struct {
	inbox    Inbox
	validate *validator.Validate
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewService creates a Service writing to inbox.
func NewService(inbox Inbox, clock clockwork.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		inbox:    inbox,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clock,
		logger:   logger,
	}
}

// Validate trims sub and checks it, returning the normalized submission or
// a *ValidationError.
func (s *Service) Validate(sub Submission) (Submission, error) {
	sub = sub.normalized()
	err := s.validate.Struct(sub)
	if err == nil {
		return sub, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return sub, fmt.Errorf("validating submission: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: describe(fe),
		})
	}
	return sub, out
}

// Submit validates sub, stores it and returns the acknowledgement shown to
// the sender.
func (s *Service) Submit(ctx context.Context, sub Submission, remoteAddr string) (Receipt, error) {
	sub, err := s.Validate(sub)
	if err != nil {
		return Receipt{}, err
	}

	msg := storage.ContactMessage{
		ID:         uuid.New().String(),
		CreatedAt:  s.clock.Now().UTC(),
		Name:       sub.Name,
		Email:      sub.Email,
		Message:    sub.Message,
		RemoteAddr: remoteAddr,
	}
	if err := s.inbox.SaveContactMessage(ctx, msg); err != nil {
		return Receipt{}, fmt.Errorf("saving contact message: %w", err)
	}

	s.logger.Info("contact message received", "id", msg.ID, "remote_addr", remoteAddr)
	return Receipt{ID: msg.ID, Acknowledgement: Acknowledge(sub.Name)}, nil
}

// Acknowledge returns the thank-you line for name.
func Acknowledge(name string) string {
	return fmt.Sprintf("Thank you, %s! Your message has been received.", name)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
