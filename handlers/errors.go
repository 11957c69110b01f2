package handlers

import (
	"errors"
	"net/http"

	"github.com/ferreirogomes/pregao/services"
)

// statusForError mapeia a taxonomia de erros do núcleo para códigos HTTP:
// validação -> 400, autorização -> 403, não encontrado -> 404,
// temporal/estado -> 409, integridade (transferência externa) -> 502.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidReservePrice),
		errors.Is(err, services.ErrInvalidDuration),
		errors.Is(err, services.ErrBidTooLow),
		errors.Is(err, services.ErrInvalidFeeRate):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotAssetOwner),
		errors.Is(err, services.ErrAssetNotApproved),
		errors.Is(err, services.ErrNotSeller),
		errors.Is(err, services.ErrNotPlatformOwner):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAuctionNotActive),
		errors.Is(err, services.ErrAuctionExpired),
		errors.Is(err, services.ErrAuctionNotYetEnded),
		errors.Is(err, services.ErrBidAlreadyPlaced):
		return http.StatusConflict
	case errors.Is(err, services.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
