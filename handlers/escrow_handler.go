package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ferreirogomes/pregao/services"

	"github.com/go-chi/chi/v5"
)

// EscrowHandler lida com requisições HTTP de saldo em custódia e saques.
type EscrowHandler struct {
	Service *services.EscrowService
}

// NewEscrowHandler cria uma nova instância do handler de custódia.
func NewEscrowHandler(s *services.EscrowService) *EscrowHandler {
	return &EscrowHandler{Service: s}
}

// Withdraw saca o saldo integral da conta. Saldo zero devolve amount 0.
// POST /withdrawals
func (h *EscrowHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if requestBody.Account == "" {
		http.Error(w, "conta é obrigatória", http.StatusBadRequest)
		return
	}

	amount, err := h.Service.Withdraw(requestBody.Account)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]uint64{"amount": amount})
}

// GetBalance devolve o saldo sacável de uma conta.
// GET /accounts/{account}/balance
func (h *EscrowHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		http.Error(w, "conta é obrigatória", http.StatusBadRequest)
		return
	}

	balance, err := h.Service.GetBalance(account)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"account": account,
		"balance": balance,
	})
}
