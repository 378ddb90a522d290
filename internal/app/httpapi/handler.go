// Package httpapi exposes the storefront REST API.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/nexcart/storefront/internal/app"
	"github.com/nexcart/storefront/internal/app/domain/cart"
	"github.com/nexcart/storefront/internal/auth"
	apperrors "github.com/nexcart/storefront/internal/errors"
	"github.com/nexcart/storefront/internal/middleware"
	"github.com/nexcart/storefront/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	tokens *auth.Manager
	log    *logger.Logger
}

// NewHandler returns a router exposing the storefront API. Routes under
// /api other than signup/login require a valid session token.
func NewHandler(application *app.Application, tokens *auth.Manager, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, tokens: tokens, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(tokens, log,
		"/api/auth/signup",
		"/api/auth/login",
		"/api/products",
	))

	api.HandleFunc("/auth/signup", h.signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	api.HandleFunc("/me", h.me).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.cartGet).Methods(http.MethodGet)
	api.HandleFunc("/cart/add", h.cartAdd).Methods(http.MethodPost)
	api.HandleFunc("/cart/remove", h.cartRemove).Methods(http.MethodPost)
	api.HandleFunc("/checkout", h.checkout).Methods(http.MethodPost)
	api.HandleFunc("/products", h.products).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.productByID).Methods(http.MethodGet)

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, apperrors.InvalidRequest("Invalid request body"))
		return
	}

	acct, err := h.app.Accounts.Signup(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "User created",
		"username": acct.Username,
		"balance":  acct.Balance,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, apperrors.InvalidRequest("Invalid request body"))
		return
	}

	acct, err := h.app.Accounts.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(acct.Username)
	if err != nil {
		h.writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Login successful",
		"username": acct.Username,
		"token":    token,
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())

	acct, err := h.app.Accounts.Get(r.Context(), username)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username":     acct.Username,
		"balance":      acct.Balance,
		"transactions": acct.Transactions,
	})
}

func (h *handler) cartGet(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())

	lines, err := h.app.Cart.Lines(r.Context(), username)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if lines == nil {
		lines = []cart.Line{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cart": lines})
}

func (h *handler) cartAdd(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())

	var payload struct {
		Item struct {
			ProductID string `json:"product_id"`
			Name      string `json:"name"`
			Price     int64  `json:"price"`
		} `json:"item"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, apperrors.InvalidRequest("Invalid request body"))
		return
	}

	line, err := h.app.Cart.Add(r.Context(), username, cart.Line{
		ProductID: payload.Item.ProductID,
		Name:      payload.Item.Name,
		Price:     payload.Item.Price,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Item added to cart", "item": line})
}

func (h *handler) cartRemove(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())

	var payload struct {
		ProductID string `json:"product_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, apperrors.InvalidRequest("Invalid request body"))
		return
	}

	if err := h.app.Cart.Remove(r.Context(), username, payload.ProductID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

func (h *handler) checkout(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFromContext(r.Context())

	result, err := h.app.Checkout.Checkout(r.Context(), username)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"newBalance": result.NewBalance,
		"total":      result.Total,
	})
}

func (h *handler) products(w http.ResponseWriter, r *http.Request) {
	results, err := h.app.Catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": results})
}

func (h *handler) productByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.app.Catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders the service error taxonomy. Unclassified errors are
// logged and reported as a generic 500 so internals never leak.
func (h *handler) writeError(w http.ResponseWriter, err error) {
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil {
		svcErr = apperrors.Internal("Internal server error", err)
	}

	if svcErr.Code == apperrors.CodeInternal {
		h.log.WithError(err).Error("request failed")
		writeJSON(w, svcErr.HTTPStatus, map[string]string{"message": "Internal server error"})
		return
	}

	body := map[string]interface{}{"error": svcErr.Message}
	if len(svcErr.Details) > 0 {
		body["details"] = svcErr.Details
	}
	writeJSON(w, svcErr.HTTPStatus, body)
}
