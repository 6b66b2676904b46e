package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/madio/backend/internal/services"
	"github.com/madio/backend/internal/store"
)

type QRHandler struct {
	service *services.QRService
}

func NewQRHandler(service *services.QRService) *QRHandler {
	return &QRHandler{service: service}
}

// LocationQR returns a QR code of a report's position
// @Summary Location QR for a report
// @Description Encode the report's coordinates as a geo URI QR code
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report id"
// @Success 200 {object} object{geoUri=string,qrImage=string}
// @Failure 404 {object} services.ErrorResponse
// @Router /reports/{id}/qr [get]
func (h *QRHandler) LocationQR(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		services.SendErrorResponse(w, "Invalid report id", http.StatusBadRequest, nil)
		return
	}

	geoURI, qrImage, err := h.service.LocationQR(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			services.SendErrorResponse(w, "Report not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[QR] Failed to render QR for report %d: %v", id, err)
		services.SendErrorResponse(w, "Failed to generate QR code", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"geoUri":  geoURI,
		"qrImage": qrImage,
	})
}
