package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/budget/internal/api/request"
	"github.com/edvin/budget/internal/api/response"
	"github.com/edvin/budget/internal/core"
)

type APIKey struct {
	svc *core.APIKeyService
}

func NewAPIKey(svc *core.APIKeyService) *APIKey {
	return &APIKey{svc: svc}
}

// CreatedAPIKey is the one response that carries the raw key.
type CreatedAPIKey struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// Create godoc
//
//	@Summary		Create an API key
//	@Description	Issues a key for a budget tool or script. Keys without scopes get full access. The raw key is only returned here.
//	@Tags			API Keys
//	@Security		ApiKeyAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		request.CreateAPIKey	true	"Key name and scopes"
//	@Success		201		{object}	CreatedAPIKey
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/api-keys [post]
func (h *APIKey) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAPIKey
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, raw, err := h.svc.Create(r.Context(), req.Name, req.Scopes)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, CreatedAPIKey{
		ID:        key.ID,
		Name:      key.Name,
		Key:       raw,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
		CreatedAt: key.CreatedAt,
	})
}

// List godoc
//
//	@Summary		List API keys
//	@Tags			API Keys
//	@Security		ApiKeyAuth
//	@Produce		json
//	@Param			limit	query		int		false	"Page size (1-500)"
//	@Param			cursor	query		string	false	"Id of the last key of the previous page"
//	@Success		200		{object}	response.PaginatedResponse{items=[]model.APIKey}
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/api-keys [get]
func (h *APIKey) List(w http.ResponseWriter, r *http.Request) {
	page, err := request.ParsePage(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	keys, hasMore, err := h.svc.List(r.Context(), page.Limit, page.Cursor)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	var next string
	if hasMore && len(keys) > 0 {
		next = keys[len(keys)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, keys, next, hasMore)
}

// Revoke godoc
//
//	@Summary		Revoke an API key
//	@Description	Marks a key revoked. Revoked keys stay listed.
//	@Tags			API Keys
//	@Security		ApiKeyAuth
//	@Param			id	path	string	true	"API key ID"
//	@Success		204
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/api-keys/{id} [delete]
func (h *APIKey) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Revoke(r.Context(), id); err != nil {
		response.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
