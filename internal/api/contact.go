package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/mdnooraj/folio/internal/contact"
	"github.com/mdnooraj/folio/internal/page"
)

// handleContactForm accepts the HTML form. Success redirects back to the
// page with the acknowledgement; invalid input re-renders the page with
// field errors and the submitted values.
func handleContactForm(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := r.ParseForm(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid form: %v", err)
			return
		}

		sub := contact.Submission{
			Name:    r.PostFormValue("name"),
			Email:   r.PostFormValue("email"),
			Message: r.PostFormValue("message"),
		}
		_, err := deps.Contact.Submit(r.Context(), sub, clientIP(r))

		var verr *contact.ValidationError
		if errors.As(err, &verr) {
			renderPage(w, deps, http.StatusUnprocessableEntity, page.View{
				Year:   deps.Clock.Now().Year(),
				Errors: verr.Messages(),
				Form: map[string]string{
					"name":    sub.Name,
					"email":   sub.Email,
					"message": sub.Message,
				},
			})
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save message: %v", err)
			return
		}

		target := "/?thanks=" + url.QueryEscape(strings.TrimSpace(sub.Name)) + "#contact"
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func handleContactJSON(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var sub contact.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		receipt, err := deps.Contact.Submit(r.Context(), sub, clientIP(r))
		var verr *contact.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": map[string]any{
					"message": verr.Error(),
					"type":    "invalid_request_error",
					"fields":  verr.Fields,
				},
			})
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save message: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, receipt)
	}
}

// clientIP strips the port from RemoteAddr. RealIP has already replaced it
// with the forwarded address when one was present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
