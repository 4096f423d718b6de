package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/apptscheduler/internal/google"
	"github.com/teemow/apptscheduler/internal/instrumentation"
	"github.com/teemow/apptscheduler/internal/logging"
)

const oauthStateCookie = "apptscheduler_oauth_state"

// OAuthHandler runs the one-time consent flow that seeds the token store.
// The calendar client reads the store on every call, so a successful
// callback takes effect without a restart.
type OAuthHandler struct {
	conf    *oauth2.Config
	store   google.TokenStore
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewOAuthHandler creates the consent and callback handlers.
func NewOAuthHandler(conf *oauth2.Config, store google.TokenStore, logger *slog.Logger, metrics *instrumentation.Metrics) *OAuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OAuthHandler{
		conf:    conf,
		store:   store,
		logger:  logging.WithOperation(logger, "oauth"),
		metrics: metrics,
	}
}

// Register mounts GET / and GET /redirect, each wrapped with mw.
func (h *OAuthHandler) Register(mux *http.ServeMux, mw ...Middleware) {
	mux.Handle("GET /{$}", Chain(http.HandlerFunc(h.handleStart), mw...))
	mux.Handle("GET /redirect", Chain(http.HandlerFunc(h.handleCallback), mw...))
}

func (h *OAuthHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/redirect",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, google.AuthURL(h.conf, state), http.StatusFound)
}

func (h *OAuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	if msg := query.Get("error"); msg != "" {
		h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		h.logger.WarnContext(ctx, "consent denied", slog.String("reason", msg))
		http.Error(w, "Error: "+msg, http.StatusBadRequest)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	state := query.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		h.logger.WarnContext(ctx, "oauth state mismatch")
		http.Error(w, "Error: invalid state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/redirect", MaxAge: -1})

	token, err := google.ExchangeAndSave(ctx, h.conf, h.store, query.Get("code"))
	if err != nil {
		h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		h.logger.ErrorContext(ctx, "couldn't get token", logging.Err(err))
		http.Error(w, "Error: "+err.Error(), http.StatusBadGateway)
		return
	}

	h.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	h.logger.InfoContext(ctx, "google account linked",
		slog.Bool("has_refresh_token", token.RefreshToken != ""))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Successfully logged in."))
}
