// Package main implements a mock MercadoPago API server for local
// development. It issues OAuth tokens for all three grant types and creates
// checkout preferences in memory, so the market client can be exercised
// without registered application credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	mockUserID   = 123456789
	checkoutBase = "https://www.mercadopago.com.ar/checkout/v1/redirect"
	sandboxBase  = "https://sandbox.mercadopago.com.ar/checkout/v1/redirect"
)

type server struct {
	logger *slog.Logger

	mu            sync.Mutex
	sellerTokens  map[string]bool
	refreshTokens map[string]bool
}

func newServer(logger *slog.Logger) *server {
	return &server{
		logger:        logger,
		sellerTokens:  map[string]bool{},
		refreshTokens: map[string]bool{},
	}
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := newServer(logger)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock market server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, s.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", s.tokenHandler)
	mux.HandleFunc("POST /checkout/preferences", s.preferencesHandler)
	return mux
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The query may carry an access token; only the path is logged.
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func oauthError(w http.ResponseWriter, status int, code, desc string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}

func (s *server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if r.PostForm.Get("client_id") == "" || r.PostForm.Get("client_secret") == "" {
		s.logger.Warn("token request missing client credentials")
		oauthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	switch grant := r.PostForm.Get("grant_type"); grant {
	case "client_credentials":
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "APP_USR-mock-" + uuid.NewString(),
			"token_type":   "bearer",
			"expires_in":   21600,
		})
		s.logger.Info("issued application token")

	case "authorization_code":
		if r.PostForm.Get("code") == "" || r.PostForm.Get("redirect_uri") == "" {
			oauthError(w, http.StatusBadRequest, "invalid_grant", "code and redirect_uri are required")
			return
		}
		writeJSON(w, http.StatusOK, s.issueSellerToken())
		s.logger.Info("issued seller token", "grant_type", grant)

	case "refresh_token":
		s.mu.Lock()
		known := s.refreshTokens[r.PostForm.Get("refresh_token")]
		s.mu.Unlock()
		if !known {
			oauthError(w, http.StatusBadRequest, "invalid_grant", "unknown refresh_token")
			return
		}
		writeJSON(w, http.StatusOK, s.issueSellerToken())
		s.logger.Info("issued seller token", "grant_type", grant)

	default:
		oauthError(w, http.StatusBadRequest, "unsupported_grant_type", fmt.Sprintf("grant_type %q", grant))
	}
}

func (s *server) issueSellerToken() map[string]any {
	access := "APP_USR-seller-" + uuid.NewString()
	refresh := "TG-" + uuid.NewString()

	s.mu.Lock()
	s.sellerTokens[access] = true
	s.refreshTokens[refresh] = true
	s.mu.Unlock()

	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    21600,
		"scope":         "offline_access read write",
		"user_id":       mockUserID,
		"refresh_token": refresh,
	}
}

type preferenceRequest struct {
	Items             []json.RawMessage `json:"items"`
	ExternalReference string            `json:"external_reference"`
	Payer             json.RawMessage   `json:"payer"`
	MarketplaceFee    json.Number       `json:"marketplace_fee"`
	PaymentMethods    json.RawMessage   `json:"payment_methods"`
	BackURLs          json.RawMessage   `json:"back_urls"`
}

func (s *server) preferencesHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	s.mu.Lock()
	known := s.sellerTokens[token]
	s.mu.Unlock()
	if !known {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"message": "invalid access_token",
			"error":   "unauthorized",
			"status":  http.StatusUnauthorized,
		})
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "invalid json body",
			"error":   "bad_request",
			"status":  http.StatusBadRequest,
		})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "items needed",
			"error":   "invalid_items",
			"status":  http.StatusBadRequest,
		})
		return
	}

	id := fmt.Sprintf("%d-%s", mockUserID, uuid.NewString())
	now := time.Now().UTC().Format(time.RFC3339)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":                   id,
		"collector_id":         mockUserID,
		"client_id":            r.URL.Query().Get("client_id"),
		"operation_type":       "regular_payment",
		"items":                req.Items,
		"payer":                req.Payer,
		"payment_methods":      req.PaymentMethods,
		"back_urls":            req.BackURLs,
		"external_reference":   req.ExternalReference,
		"marketplace":          "MP-MKT-mock",
		"marketplace_fee":      req.MarketplaceFee,
		"init_point":           checkoutBase + "?pref_id=" + id,
		"sandbox_init_point":   sandboxBase + "?pref_id=" + id,
		"date_created":         now,
		"expires":              false,
		"expiration_date_from": nil,
		"expiration_date_to":   nil,
		"notification_url":     nil,
		"auto_return":          "",
		"shipments":            map[string]any{},
		"additional_info":      "",
	})
	s.logger.Info("created preference", "id", id, "items", len(req.Items))
}
