// Package httpapi exposes the cart to the storefront clients over JSON/HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/gomarketplace/internal/cart"
	"github.com/ahinestrog/gomarketplace/internal/money"
)

type Server struct {
	store   *cart.Store
	log     zerolog.Logger
	timeout time.Duration
}

func NewServer(store *cart.Store, log zerolog.Logger) *Server {
	return &Server{store: store, log: log, timeout: 5 * time.Second}
}

// Routes returns the HTTP handler for the cart API. The store is attached
// to every request context by the provider middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", s.handleCart)
	mux.HandleFunc("POST /cart/items", s.handleAdd)
	mux.HandleFunc("POST /cart/items/{id}/increment", s.handleIncrement)
	mux.HandleFunc("POST /cart/items/{id}/decrement", s.handleDecrement)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.provide(mux))
}

func (s *Server) provide(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(cart.NewContext(r.Context(), s.store)))
	})
}

func (s *Server) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

type ItemVM struct {
	cart.LineItem
	LineTotal     float64 `json:"line_total"`
	LineFormatted string  `json:"line_formatted"`
}

type CartVM struct {
	Items          []ItemVM `json:"items"`
	Count          int      `json:"count"`
	Total          float64  `json:"total"`
	TotalFormatted string   `json:"total_formatted"`
	Warning        string   `json:"warning,omitempty"`
}

func toVM(st cart.State) CartVM {
	vm := CartVM{Items: make([]ItemVM, 0, len(st)), Count: st.Count(), Total: st.Total()}
	for _, it := range st {
		line := it.Price * float64(it.Quantity)
		vm.Items = append(vm.Items, ItemVM{LineItem: it, LineTotal: line, LineFormatted: money.Format(line)})
	}
	vm.TotalFormatted = money.Format(vm.Total)
	return vm
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.cart(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toVM(c.Products()))
}

type addRequest struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	c, ok := s.cart(w, r)
	if !ok {
		return
	}
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	st, err := c.AddToCart(ctx, cart.LineItem{ID: req.ID, Title: req.Title, ImageURL: req.ImageURL, Price: req.Price})
	s.log.Info().Str("id", req.ID).Int("items", len(st)).Msg("handleAdd")
	s.respond(w, st, err)
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	c, ok := s.cart(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	st, err := c.Increment(ctx, r.PathValue("id"))
	s.respond(w, st, err)
}

func (s *Server) handleDecrement(w http.ResponseWriter, r *http.Request) {
	c, ok := s.cart(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	st, err := c.Decrement(ctx, r.PathValue("id"))
	s.respond(w, st, err)
}

// cart resolves the store from the request; a handler mounted without the
// provider middleware is a wiring bug and answers 500.
func (s *Server) cart(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	c, err := cart.FromContext(r.Context())
	if err != nil {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("cart handler without provider")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return c, true
}

// respond writes the new cart. A failed snapshot write still reports the
// in-memory cart, with a warning attached.
func (s *Server) respond(w http.ResponseWriter, st cart.State, err error) {
	switch {
	case errors.Is(err, cart.ErrNotReady):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		vm := toVM(st)
		vm.Warning = "cart not saved"
		s.writeJSON(w, http.StatusOK, vm)
	default:
		s.writeJSON(w, http.StatusOK, toVM(st))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
