package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appTransaction "github.com/chama-ledger/ledger/internal/application/transaction"
	"github.com/chama-ledger/ledger/internal/domain/chama"
)

type chamaCreateRequest struct {
	Type        chama.Type `json:"type"`
	AmountMsats int64      `json:"amountMsats"`
	Reference   string     `json:"reference"`
}

type reviewRequest struct {
	Decision chama.Decision `json:"decision"`
}

type memberRequest struct {
	Roles []chama.Role `json:"roles"`
}

func (s *Server) createChamaTx(w http.ResponseWriter, r *http.Request) {
	var req chamaCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	tx, err := s.chamas.Create(contextFromRequest(r), appTransaction.CreateChamaTx{
		ChamaID:     chi.URLParam(r, "chamaId"),
		MemberID:    strings.TrimSpace(r.Header.Get(MemberHeader)),
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

func (s *Server) listChamaTxs(w http.ResponseWriter, r *http.Request) {
	chamaID := chi.URLParam(r, "chamaId")
	filter := chama.Filter{ChamaID: &chamaID}
	if st := r.URL.Query().Get("status"); st != "" {
		status := chama.Status(st)
		filter.Status = &status
	}
	if m := r.URL.Query().Get("memberId"); m != "" {
		filter.MemberID = &m
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	txs, err := s.chamas.List(contextFromRequest(r), filter, limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []*chama.Transaction{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

func (s *Server) getChamaTx(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	tx, err := s.chamas.Get(contextFromRequest(r), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) updateChamaTxStatus(w http.ResponseWriter, r *http.Request) {
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
	tx, err := s.chamas.UpdateStatus(contextFromRequest(r), id, chama.Status(req.Status))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) reviewChamaTx(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid transactionId")
		return
	}
	memberID := strings.TrimSpace(r.Header.Get(MemberHeader))
	if memberID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", MemberHeader+" header is required")
		return
	}
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	out, err := s.chamas.Review(contextFromRequest(r), id, memberID, req.Decision)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) getMembership(w http.ResponseWriter, r *http.Request) {
	m, err := s.members.GetMembership(contextFromRequest(r), chi.URLParam(r, "chamaId"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) putMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	for _, role := range req.Roles {
		switch role {
		case chama.RoleMember, chama.RoleAdmin, chama.RoleExternalAdmin:
		default:
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "unknown role: "+string(role))
			return
		}
	}
	chamaID := chi.URLParam(r, "chamaId")
	member := chama.Member{ID: chi.URLParam(r, "memberId"), Roles: req.Roles}
	if member.Roles == nil {
		member.Roles = []chama.Role{}
	}
	if err := s.members.PutMember(contextFromRequest(r), chamaID, member); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"chamaId": chamaID, "member": member})
}
