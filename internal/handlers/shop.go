package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bazario/bazario-backend/internal/middleware"
	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
	"github.com/bazario/bazario-backend/pkg/apperr"
	"github.com/bazario/bazario-backend/pkg/utils"
)

// ShopHandler owns the seller account lifecycle. Same shape as the customer
// flow: deferred activation via signed token, seller_token cookie session.
type ShopHandler struct {
	Shops       store.ShopStore
	Media       services.Media
	Mail        services.Mailer
	Activation  *services.ActivationTokens
	Sessions    *services.Sessions
	Cache       *services.Cache
	FrontendURL string
}

func (h *ShopHandler) sendToken(w http.ResponseWriter, status int, shop *models.Shop) {
	token, expires, err := h.Sessions.Issue(shop.ID.Hex())
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	h.Sessions.SetCookie(w, token, expires)
	shop.Password = ""
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"seller":  shop,
		"token":   token,
	})
}

// CreateShop handles POST /create-shop.
func (h *ShopHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, apperr.Validation("Invalid multipart form"))
		return
	}

	name := r.FormValue("name")
	email := r.FormValue("email")
	password := r.FormValue("password")
	if name == "" || email == "" || password == "" {
		writeError(w, apperr.Validation("Please provide all fields"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validation("No file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apperr.Upload(err))
		return
	}

	avatar, err := h.Media.Upload(r.Context(), data, avatarFolder)
	if err != nil {
		writeError(w, apperr.Upload(err))
		return
	}

	rollback := func() {
		if derr := h.Media.Delete(r.Context(), avatar.PublicID); derr != nil {
			log.Printf("failed to delete uploaded avatar %s: %v", avatar.PublicID, derr)
		}
	}

	if _, err := h.Shops.FindByEmail(r.Context(), email); err == nil {
		rollback()
		writeError(w, apperr.DuplicateAccount("Seller already exists"))
		return
	} else if err != store.ErrNotFound {
		rollback()
		writeError(w, apperr.Internal(err))
		return
	}

	activationToken, err := h.Activation.IssueShop(services.PendingShop{
		Name:        name,
		Email:       email,
		Password:    password,
		PhoneNumber: r.FormValue("phoneNumber"),
		Address:     r.FormValue("address"),
		ZipCode:     r.FormValue("zipCode"),
		Avatar:      avatar,
	})
	if err != nil {
		rollback()
		writeError(w, apperr.Internal(err))
		return
	}

	activationURL := fmt.Sprintf("%s/seller/activation/%s", h.FrontendURL, activationToken)
	body := fmt.Sprintf("Hello %s, please click the link to activate your shop: %s", name, activationURL)

	if err := h.Mail.Send(r.Context(), email, "Activate your shop", body); err != nil {
		rollback()
		writeError(w, apperr.Mail(err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Please check your email (%s) to activate your shop.", email),
	})
}

// ActivateShop handles GET /activation/{activation_token}.
func (h *ShopHandler) ActivateShop(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Activation.VerifyShop(chi.URLParam(r, "activation_token"))
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.Shops.FindByEmail(r.Context(), pending.Email); err == nil {
		writeError(w, apperr.DuplicateAccount("Seller already exists"))
		return
	} else if err != store.ErrNotFound {
		writeError(w, apperr.Internal(err))
		return
	}

	hashed, err := utils.HashPassword(pending.Password)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	shop := &models.Shop{
		Name:        pending.Name,
		Email:       pending.Email,
		Password:    hashed,
		PhoneNumber: pending.PhoneNumber,
		Address:     pending.Address,
		ZipCode:     pending.ZipCode,
		Avatar:      pending.Avatar,
	}
	if err := h.Shops.Insert(r.Context(), shop); err != nil {
		if err == store.ErrDuplicateEmail {
			writeError(w, apperr.DuplicateAccount("Seller already exists"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	h.sendToken(w, http.StatusCreated, shop)
}

// Login handles POST /login-shop.
func (h *ShopHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, apperr.Validation("Please provide all fields"))
		return
	}

	shop, err := h.Shops.FindByEmailWithPassword(r.Context(), req.Email)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, apperr.InvalidCredentials("Seller doesn't exist"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	valid, err := utils.VerifyPassword(req.Password, shop.Password)
	if err != nil || !valid {
		writeError(w, apperr.InvalidCredentials("Invalid email or password"))
		return
	}

	h.sendToken(w, http.StatusCreated, shop)
}

// GetSeller handles GET /getSeller.
func (h *ShopHandler) GetSeller(w http.ResponseWriter, r *http.Request) {
	shop, ok := middleware.ShopFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("Please login to continue"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"seller":  shop,
	})
}

// Logout handles GET /logout.
func (h *ShopHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.ClearCookie(w)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Logout successful",
	})
}

// ShopInfo handles GET /get-shop-info/{id}, the public storefront read.
func (h *ShopHandler) ShopInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cacheKey := "shop-info:" + id

	var cached models.Shop
	if h.Cache.Get(r.Context(), cacheKey, &cached) {
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"shop":    cached,
		})
		return
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	shop, err := h.Shops.FindByID(r.Context(), oid)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	h.Cache.Set(r.Context(), cacheKey, shop, services.ProfileCacheTTL)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"shop":    shop,
	})
}

// AdminAllSellers handles GET /admin-all-sellers.
func (h *ShopHandler) AdminAllSellers(w http.ResponseWriter, r *http.Request) {
	shops, err := h.Shops.All(r.Context())
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"sellers": shops,
	})
}

// AdminDeleteSeller handles DELETE /delete-seller/{id}.
func (h *ShopHandler) AdminDeleteSeller(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.NotFound("Seller not found"))
		return
	}

	shop, err := h.Shops.FindByID(r.Context(), oid)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, apperr.NotFound("Seller not found"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	if err := h.Shops.Delete(r.Context(), oid); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	if derr := h.Media.Delete(r.Context(), shop.Avatar.PublicID); derr != nil {
		log.Printf("failed to delete avatar %s for removed seller: %v", shop.Avatar.PublicID, derr)
	}
	h.Cache.Delete(r.Context(), "shop-info:"+oid.Hex())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Seller deleted successfully",
	})
}
