package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appTransaction "github.com/chama-ledger/ledger/internal/application/transaction"
	"github.com/chama-ledger/ledger/internal/domain/wallet"
)

type walletCreateRequest struct {
	Type        wallet.Type `json:"type"`
	AmountMsats int64       `json:"amountMsats"`
	Reference   string      `json:"reference"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (s *Server) createWalletTx(w http.ResponseWriter, r *http.Request) {
	var req walletCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	tx, err := s.wallets.Create(contextFromRequest(r), appTransaction.CreateWalletTx{
		UserID:      chi.URLParam(r, "userId"),
		Type:        req.Type,
		AmountMsats: req.AmountMsats,
		Reference:   req.Reference,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (s *Server) listWalletTxs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	filter := wallet.Filter{UserID: &userID}
	if st := r.URL.Query().Get("status"); st != "" {
		status := wallet.Status(st)
		filter.Status = &status
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	txs, err := s.wallets.List(contextFromRequest(r), filter, limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []*wallet.Transaction{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

func (s *Server) getWalletTx(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	tx, err := s.wallets.Get(contextFromRequest(r), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) updateWalletTxStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	var req statusUpdateRequest
	if err := decodeBody(r, &req); err != nil || req.Status == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "status is required")
		return
	}
	tx, err := s.wallets.UpdateStatus(contextFromRequest(r), id, wallet.Status(req.Status))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}
