package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/studenthealthcard/registration/internal/interfaces/http/common"
	"github.com/studenthealthcard/registration/internal/registration/application"
)

// registrationListHandler lists registrations page by page.
func (h *Handler) registrationListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := common.PageParams(r.URL.Query(), 20)
		paging := application.Paging{Page: page, Limit: limit}.Normalize()

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		registrations, err := h.registrations.List(ctx, paging)
		if err != nil {
			h.logger.Error().Err(err).Msg("admin registration list fetch failed")
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": "failed to list registrations"})
			return
		}

		items := make([]registrationResponse, 0, len(registrations))
		for _, registration := range registrations {
			items = append(items, registrationToResponse(registration))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, registrationListResponse{Items: items, Page: paging.Page, Limit: paging.Limit})
	}
}

// registrationDetailHandler returns one registration or 404.
func (h *Handler) registrationDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := strings.TrimSpace(chi.URLParam(r, "id"))
		if idParam == "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "registration id is required"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		registration, err := h.registrations.Detail(ctx, idParam)
		if err != nil {
			if errors.Is(err, application.ErrNotFound) {
				common.WriteJSON(h.logger, w, http.StatusNotFound, map[string]string{"error": "registration not found"})
				return
			}
			h.logger.Error().Err(err).Str("id", idParam).Msg("admin registration detail fetch failed")
			common.WriteJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": "failed to load registration"})
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, registrationToResponse(*registration))
	}
}
