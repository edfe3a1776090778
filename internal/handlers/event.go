package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bazario/bazario-backend/internal/middleware"
	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
	"github.com/bazario/bazario-backend/pkg/apperr"
)

const eventFolder = "events"

// EventHandler serves shop promotional events. Creation and deletion are
// seller-scoped, listing is public, the full list is admin-only.
type EventHandler struct {
	Events store.EventStore
	Media  services.Media
}

// Create handles POST /create-event. Multipart with one or more image files.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	shop, ok := middleware.ShopFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("Please login to continue"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, apperr.Validation("Invalid multipart form"))
		return
	}

	name := r.FormValue("name")
	description := r.FormValue("description")
	category := r.FormValue("category")
	if name == "" || description == "" || category == "" {
		writeError(w, apperr.Validation("Please provide all fields"))
		return
	}

	startDate, err := time.Parse(time.RFC3339, r.FormValue("start_Date"))
	if err != nil {
		writeError(w, apperr.Validation("Invalid start date"))
		return
	}
	finishDate, err := time.Parse(time.RFC3339, r.FormValue("Finish_Date"))
	if err != nil {
		writeError(w, apperr.Validation("Invalid finish date"))
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, apperr.Validation("No file uploaded"))
		return
	}

	var images []models.Avatar
	rollback := func() {
		for _, img := range images {
			if derr := h.Media.Delete(r.Context(), img.PublicID); derr != nil {
				log.Printf("failed to delete uploaded event image %s: %v", img.PublicID, derr)
			}
		}
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			rollback()
			writeError(w, apperr.Upload(err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			rollback()
			writeError(w, apperr.Upload(err))
			return
		}
		img, err := h.Media.Upload(r.Context(), data, eventFolder)
		if err != nil {
			rollback()
			writeError(w, apperr.Upload(err))
			return
		}
		images = append(images, img)
	}

	originalPrice, _ := strconv.ParseFloat(r.FormValue("originalPrice"), 64)
	discountPrice, err := strconv.ParseFloat(r.FormValue("discountPrice"), 64)
	if err != nil {
		rollback()
		writeError(w, apperr.Validation("Invalid discount price"))
		return
	}
	stock, err := strconv.Atoi(r.FormValue("stock"))
	if err != nil {
		rollback()
		writeError(w, apperr.Validation("Invalid stock"))
		return
	}

	event := &models.Event{
		Name:          name,
		Description:   description,
		Category:      category,
		Tags:          r.FormValue("tags"),
		OriginalPrice: originalPrice,
		DiscountPrice: discountPrice,
		Stock:         stock,
		StartDate:     startDate,
		FinishDate:    finishDate,
		Status:        "Running",
		Images:        images,
		ShopID:        shop.ID,
	}
	if err := h.Events.Insert(r.Context(), event); err != nil {
		rollback()
		writeError(w, apperr.Internal(err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"event":   event,
	})
}

// All handles GET /get-all-events, the public listing.
func (h *EventHandler) All(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.All(r.Context())
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"events":  events,
	})
}

// AllByShop handles GET /get-all-events/{id}.
func (h *EventHandler) AllByShop(w http.ResponseWriter, r *http.Request) {
	shopID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.Validation("Invalid shop id"))
		return
	}
	events, err := h.Events.AllByShop(r.Context(), shopID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"events":  events,
	})
}

// Delete handles DELETE /delete-shop-event/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.NotFound("Event not found"))
		return
	}

	event, err := h.Events.FindByID(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, apperr.NotFound("Event not found"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	if err := h.Events.Delete(r.Context(), id); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	for _, img := range event.Images {
		if derr := h.Media.Delete(r.Context(), img.PublicID); derr != nil {
			log.Printf("failed to delete event image %s: %v", img.PublicID, derr)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Event deleted successfully",
	})
}

// AdminAll handles GET /admin-all-events.
func (h *EventHandler) AdminAll(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.All(r.Context())
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"events":  events,
	})
}
