package public

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/studenthealthcard/registration/internal/interfaces/http/common"
	"github.com/studenthealthcard/registration/internal/registration/application"
	"github.com/studenthealthcard/registration/internal/registration/domain"
)

// submitHandler validates the posted form, stores the registration and points
// the page at the thank-you page.
func (h *Handler) submitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, common.MaxSubmitRequestBody))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteJSON(h.logger, w, http.StatusRequestEntityTooLarge, submitResponse{Message: msgTooLarge})
			return
		}
		if err != nil || !hasFields(body) {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, submitResponse{Message: msgNoData})
			return
		}

		var req submitRequest
		if err := json.Unmarshal(body, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, submitResponse{
				Message: fmt.Sprintf("Invalid request: %v", err),
			})
			return
		}

		if msg := h.validationMessage(req); msg != "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, submitResponse{Message: msg})
			return
		}

		dob, err := domain.ParseDateOfBirth(req.DOB)
		if err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, submitResponse{Message: msgInvalidDate})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		registration, err := h.registrations.Register(ctx, application.RegisterCommand{
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			DateOfBirth: dob,
			Street:      req.Street,
			City:        req.City,
			State:       req.State,
			Postal:      req.Postal,
			Country:     req.Country,
			Institution: req.Institution,
			StudentID:   req.StudentID,
			Message:     h.stripMarkup(req.Message),
		})
		if err != nil {
			h.logger.Error().Err(err).Msg("save registration")
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, submitResponse{
				Message: fmt.Sprintf("Error: %v", err),
			})
			return
		}

		h.logger.Info().Str("registration", registration.ID).Msg("registration stored")
		common.WriteJSON(h.logger, w, http.StatusOK, submitResponse{
			Message:  msgSubmitSuccess,
			Redirect: h.thankYouPath,
		})
	}
}

// hasFields reports whether body is a JSON object with at least one key.
func hasFields(body []byte) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	return len(fields) > 0
}

// validationMessage maps validation errors to the user-facing text; missing fields win.
func (h *Handler) validationMessage(req submitRequest) string {
	err := h.validate.Struct(req)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return msgNoData
	}

	msg := ""
	for _, fe := range verrs {
		switch {
		case fe.Tag() == "required":
			return msgRequired
		case fe.Field() == "Email" && msg == "":
			msg = msgInvalidEmail
		case fe.Field() == "DOB" && msg == "":
			msg = msgInvalidDate
		}
	}
	if msg == "" {
		msg = msgRequired
	}
	return msg
}

// stripMarkup removes tags from free text while keeping its literal characters.
func (h *Handler) stripMarkup(text string) string {
	return html.UnescapeString(h.sanitizer.Sanitize(text))
}
