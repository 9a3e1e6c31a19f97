package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"smeaudit/internal/core"
)

// partyRoutes mounts list/create/get/update/deactivate for vendors or customers. Both
// share the handlers and differ only in the service bound to them.
func (h *Handler) partyRoutes(r chi.Router, prefix string, svc core.PartyService) {
	r.Get(prefix, h.listParties(svc))
	r.Post(prefix, h.createParty(svc))
	r.Get(prefix+"/{code}", h.getParty(svc))
	r.Put(prefix+"/{code}", h.updateParty(svc))
	r.Delete(prefix+"/{code}", h.deactivateParty(svc))
}

// listParties handles GET /api/vendors?search=&include_inactive=.
func (h *Handler) listParties(svc core.PartyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parties, err := svc.List(r.Context(), companyID(r), core.PartyFilter{
			Search:          r.URL.Query().Get("search"),
			IncludeInactive: queryBool(r, "include_inactive"),
		})
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, parties)
	}
}

func (h *Handler) createParty(svc core.PartyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in core.PartyInput
		if !decodeJSON(w, r, &in) {
			return
		}
		p, err := svc.Create(r.Context(), companyID(r), in)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func (h *Handler) getParty(svc core.PartyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByCode(r.Context(), companyID(r), chi.URLParam(r, "code"))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// updateParty handles PUT. The code in the path wins over any code in the body.
func (h *Handler) updateParty(svc core.PartyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in core.PartyInput
		if !decodeJSON(w, r, &in) {
			return
		}
		code := chi.URLParam(r, "code")
		in.Code = code
		p, err := svc.Update(r.Context(), companyID(r), code, in)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// deactivateParty handles DELETE. Parties are soft-deleted so history keeps resolving.
func (h *Handler) deactivateParty(svc core.PartyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if err := svc.Deactivate(r.Context(), companyID(r), code); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deactivated": code})
	}
}

func (h *Handler) listSKUs(w http.ResponseWriter, r *http.Request) {
	skus, err := h.svc.SKUs.List(r.Context(), companyID(r), r.URL.Query().Get("search"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, skus)
}

func (h *Handler) createSKU(w http.ResponseWriter, r *http.Request) {
	var in core.SKUInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sku, err := h.svc.SKUs.Create(r.Context(), companyID(r), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sku)
}

func (h *Handler) getSKU(w http.ResponseWriter, r *http.Request) {
	sku, err := h.svc.SKUs.GetByCode(r.Context(), companyID(r), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sku)
}
