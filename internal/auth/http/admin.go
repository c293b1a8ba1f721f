package http

import (
	"net/http"

	"github.com/aussiebroadwan/roomstay/internal/auth/service"
	"github.com/aussiebroadwan/roomstay/pkg/authsdk"
	"github.com/aussiebroadwan/roomstay/pkg/httpx"
	"github.com/aussiebroadwan/roomstay/pkg/slogx"
)

// HousekeepingHandler runs the expiry sweeps on demand.
type HousekeepingHandler struct {
	Housekeeping *service.HousekeepingService
}

// ServeHTTP godoc
//
//	@Summary		Run housekeeping
//	@Description	Deletes expired revocation records and verification entries now instead of waiting for the schedule.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.HousekeepingResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"forbidden"
//	@Router			/v1/admin/housekeeping [post].
func (h *HousekeepingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, err := h.Housekeeping.RunNow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, _ := httpx.PrincipalFromContext(r.Context())
	slogx.FromContext(r.Context()).Info("housekeeping run on demand",
		"by", p.Subject,
		"revoked_tokens_deleted", report.RevokedTokensDeleted,
		"verification_entries_deleted", report.VerificationEntriesDeleted,
	)

	httpx.WriteJSON(w, http.StatusOK, authsdk.HousekeepingResponse{
		RevokedTokensDeleted:       report.RevokedTokensDeleted,
		VerificationEntriesDeleted: report.VerificationEntriesDeleted,
		RanAt:                      report.RanAt,
	})
}
