package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ferreirogomes/pregao/services"

	"github.com/go-chi/chi/v5"
)

// AuctionHandler lida com requisições HTTP do ciclo de vida dos leilões.
type AuctionHandler struct {
	Service *services.AuctionService
}

// NewAuctionHandler cria uma nova instância do handler de leilões.
func NewAuctionHandler(s *services.AuctionService) *AuctionHandler {
	return &AuctionHandler{Service: s}
}

// CreateAuction cria um novo leilão.
// POST /auctions
func (h *AuctionHandler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Seller          string `json:"seller"`
		AssetContract   string `json:"asset_contract"`
		AssetID         uint64 `json:"asset_id"`
		ReservePrice    uint64 `json:"reserve_price"`
		DurationSeconds uint64 `json:"duration_seconds"`
	}

	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	auctionID, err := h.Service.CreateAuction(
		requestBody.Seller,
		requestBody.AssetContract,
		requestBody.AssetID,
		requestBody.ReservePrice,
		time.Duration(requestBody.DurationSeconds)*time.Second,
	)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]uint64{"auction_id": auctionID})
}

// PlaceBid registra um lance. O valor do corpo é o depósito que acompanha o lance.
// POST /auctions/{id}/bids
func (h *AuctionHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := auctionIDFromURL(w, r)
	if !ok {
		return
	}

	var requestBody struct {
		Bidder string `json:"bidder"`
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.PlaceBid(requestBody.Bidder, auctionID, requestBody.Amount); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SettleAuction liquida um leilão expirado. Qualquer conta pode chamar.
// POST /auctions/{id}/settle
func (h *AuctionHandler) SettleAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := auctionIDFromURL(w, r)
	if !ok {
		return
	}

	var requestBody struct {
		Caller string `json:"caller"`
	}
	// Corpo vazio é aceito: qualquer conta pode liquidar, o caller é opcional
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.SettleAuction(requestBody.Caller, auctionID); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CancelAuction cancela um leilão sem lances (só o vendedor).
// POST /auctions/{id}/cancel
func (h *AuctionHandler) CancelAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := auctionIDFromURL(w, r)
	if !ok {
		return
	}

	var requestBody struct {
		Caller string `json:"caller"`
	}
	// Corpo vazio vira caller vazio, que o serviço rejeita como não-vendedor
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.CancelAuction(requestBody.Caller, auctionID); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAuction obtém um leilão pelo ID, inclusive após estado terminal.
// GET /auctions/{id}
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := auctionIDFromURL(w, r)
	if !ok {
		return
	}

	auction, found, err := h.Service.GetAuction(auctionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, services.ErrAuctionNotFound.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(auction)
}

// IsActive informa se o leilão está ativo e não expirado.
// GET /auctions/{id}/active
func (h *AuctionHandler) IsActive(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := auctionIDFromURL(w, r)
	if !ok {
		return
	}

	active, err := h.Service.IsActive(auctionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"active": active})
}

// GetNextAuctionID devolve o próximo id que será atribuído.
// GET /auctions/next-id
func (h *AuctionHandler) GetNextAuctionID(w http.ResponseWriter, r *http.Request) {
	next, err := h.Service.GetNextAuctionID()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]uint64{"next_auction_id": next})
}

// GetPlatformFee devolve a taxa corrente da plataforma em basis points.
// GET /platform/fee
func (h *AuctionHandler) GetPlatformFee(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]uint64{"rate_bps": h.Service.GetPlatformFee()})
}

// UpdatePlatformFee altera a taxa da plataforma (só a conta da plataforma).
// PUT /platform/fee
func (h *AuctionHandler) UpdatePlatformFee(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Caller  string `json:"caller"`
		RateBps uint64 `json:"rate_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdatePlatformFee(requestBody.Caller, requestBody.RateBps); err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListEvents devolve os fatos mais recentes do marketplace.
// GET /events
func (h *AuctionHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limite inválido", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	events, err := h.Service.ListEvents(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// auctionIDFromURL extrai e valida o id do leilão do caminho.
func auctionIDFromURL(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	auctionID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "ID de leilão inválido", http.StatusBadRequest)
		return 0, false
	}
	return auctionID, true
}
