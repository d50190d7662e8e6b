package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/CharlesToronto/brotherstudio/email"
	"github.com/CharlesToronto/brotherstudio/metrics"
	"github.com/CharlesToronto/brotherstudio/model"
	"github.com/CharlesToronto/brotherstudio/utils"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const contactSendTimeout = 15 * time.Second

var (
	errInvalidBody          = errors.New("Invalid request body.")
	errContactNotConfigured = errors.New("Contact form is not configured yet.")
	errEmailProvider        = errors.New("Email provider error.")
	errEmailUnavailable     = errors.New("Email provider is temporarily unavailable. Please try again later.")
)

// stringField returns a trimmed string value, or "" for missing or
// non-string values
func stringField(body map[string]interface{}, key string) string {
	value, ok := body[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// SubmitContact handles POST /api/contact
func (h *SiteHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&body); err != nil || body == nil {
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		SendJSONError(w, http.StatusBadRequest, errInvalidBody, "")
		return
	}

	req := model.ContactRequest{
		Name:    stringField(body, "name"),
		Email:   stringField(body, "email"),
		Phone:   stringField(body, "phone"),
		Message: stringField(body, "message"),
		Website: stringField(body, "website"),
	}

	if utils.IsHoneypotFilled(req) {
		metrics.ContactSubmissions.WithLabelValues("honeypot").Inc()
		log.Info().Str("ip", r.RemoteAddr).Msg("Contact honeypot triggered")
		SendJSONSuccess(w, http.StatusAccepted, model.OKResponse{OK: true})
		return
	}

	msg := utils.NormalizeContact(req, h.now())
	if err := utils.ValidateContact(msg); err != nil {
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		SendJSONError(w, http.StatusBadRequest, err, "")
		return
	}

	if h.mailer == nil {
		metrics.ContactSubmissions.WithLabelValues("unconfigured").Inc()
		SendJSONError(w, http.StatusInternalServerError, errContactNotConfigured, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), contactSendTimeout)
	defer cancel()

	if err := h.mailer.SendContact(ctx, msg); err != nil {
		switch {
		case errors.Is(err, email.ErrNotConfigured):
			metrics.ContactSubmissions.WithLabelValues("unconfigured").Inc()
			SendJSONError(w, http.StatusInternalServerError, errContactNotConfigured, "")
		case errors.Is(err, email.ErrTemporarilyUnavailable):
			metrics.ContactSubmissions.WithLabelValues("provider_error").Inc()
			SendJSONError(w, http.StatusBadGateway, errEmailUnavailable, "")
		default:
			metrics.ContactSubmissions.WithLabelValues("provider_error").Inc()
			log.Error().Err(err).Msg("Failed to deliver contact request")
			SendJSONError(w, http.StatusBadGateway, errEmailProvider, "")
		}
		return
	}

	metrics.ContactSubmissions.WithLabelValues("sent").Inc()
	log.Info().Str("email", msg.Email).Msg("Contact request delivered")
	SendJSONSuccess(w, http.StatusCreated, model.OKResponse{OK: true})
}
