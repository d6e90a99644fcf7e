package httpapi

import (
	"errors"
	"net/http"

	appTransaction "github.com/chama-ledger/ledger/internal/application/transaction"
	"github.com/chama-ledger/ledger/internal/domain/chama"
	"github.com/chama-ledger/ledger/internal/domain/lifecycle"
	"github.com/chama-ledger/ledger/internal/domain/wallet"
)

// respondServiceError maps service errors to status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var walletErr *lifecycle.InvalidTransitionError[wallet.Status]
	var chamaErr *lifecycle.InvalidTransitionError[chama.Status]
	switch {
	case errors.As(err, &walletErr):
		respondInvalidTransition(w, err, string(walletErr.Current), string(walletErr.Attempted), toStrings(walletErr.Allowed))
	case errors.As(err, &chamaErr):
		respondInvalidTransition(w, err, string(chamaErr.Current), string(chamaErr.Attempted), toStrings(chamaErr.Allowed))
	case errors.Is(err, appTransaction.ErrReviewClosed):
		respondError(w, http.StatusConflict, "REVIEW_CLOSED", err.Error())
	case errors.Is(err, appTransaction.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, appTransaction.ErrNotMember), errors.Is(err, appTransaction.ErrIneligibleReviewer):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, appTransaction.ErrInvalidDecision),
		errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidType), errors.Is(err, wallet.ErrMissingUser),
		errors.Is(err, chama.ErrInvalidAmount), errors.Is(err, chama.ErrInvalidType),
		errors.Is(err, chama.ErrMissingChama), errors.Is(err, chama.ErrMissingMember):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func respondInvalidTransition(w http.ResponseWriter, err error, current, attempted string, allowed []string) {
	respondJSON(w, http.StatusConflict, map[string]interface{}{
		"error":     "INVALID_TRANSITION",
		"message":   err.Error(),
		"current":   current,
		"attempted": attempted,
		"allowed":   allowed,
	})
}

func toStrings[S ~string](in []S) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
