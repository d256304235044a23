package handler

import (
	"net/http"
	"strconv"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/model"
)

type FailedEmail struct {
	svc *core.EmailService
}

func NewFailedEmail(svc *core.EmailService) *FailedEmail {
	return &FailedEmail{svc: svc}
}

// List godoc
//
//	@Summary		List undelivered emails
//	@Description	Returns undelivered messages newest first. The cursor is the id of the last message of the previous page.
//	@Tags			Emails
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Param			limit	query		int		false	"Page size (1-500)"
//	@Param			cursor	query		string	false	"Id of the last message of the previous page"
//	@Success		200		{object}	response.PaginatedResponse{items=[]model.FailedEmail}
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/failed-emails [get]
func (h *FailedEmail) List(w http.ResponseWriter, r *http.Request) {
	page, err := request.ParsePage(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	before, err := page.CursorID()
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	emails, hasMore, err := h.svc.ListFailed(r.Context(), page.Limit, before)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if emails == nil {
		emails = []model.FailedEmail{}
	}
	var next string
	if hasMore {
		next = strconv.FormatInt(emails[len(emails)-1].ID, 10)
	}
	response.WritePaginated(w, http.StatusOK, emails, next, hasMore)
}
