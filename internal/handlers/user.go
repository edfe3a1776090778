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

// maxUploadSize bounds multipart parsing for avatar uploads.
const maxUploadSize = 10 << 20 // 10MB

const avatarFolder = "avatars"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateUserInfoRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type UpdatePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type AddressRequest struct {
	ID          string `json:"_id,omitempty"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	ZipCode     string `json:"zipCode"`
	AddressType string `json:"addressType"`
}

// UserHandler owns the customer account lifecycle: registration with deferred
// activation, login, session reads, profile mutations and the admin surface.
type UserHandler struct {
	Users       store.UserStore
	Media       services.Media
	Mail        services.Mailer
	Activation  *services.ActivationTokens
	Sessions    *services.Sessions
	Cache       *services.Cache
	FrontendURL string
}

// sendToken issues a session, attaches it as a cookie and returns the
// sanitized account plus the token in the body.
func (h *UserHandler) sendToken(w http.ResponseWriter, status int, user *models.User) {
	token, expires, err := h.Sessions.Issue(user.ID.Hex())
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	h.Sessions.SetCookie(w, token, expires)
	user.Password = ""
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

// CreateUser handles POST /create-user. The account is not persisted here:
// the request's fields travel inside a signed activation token, and the user
// must click the emailed link within the token's window.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
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

	// The fresh upload must not be orphaned when registration fails past
	// this point; cleanup is best-effort and never masks the primary error.
	rollback := func() {
		if derr := h.Media.Delete(r.Context(), avatar.PublicID); derr != nil {
			log.Printf("failed to delete uploaded avatar %s: %v", avatar.PublicID, derr)
		}
	}

	if _, err := h.Users.FindByEmail(r.Context(), email); err == nil {
		rollback()
		writeError(w, apperr.DuplicateAccount("User already exists"))
		return
	} else if err != store.ErrNotFound {
		rollback()
		writeError(w, apperr.Internal(err))
		return
	}

	activationToken, err := h.Activation.Issue(services.PendingRegistration{
		Name:     name,
		Email:    email,
		Password: password,
		Avatar:   avatar,
	})
	if err != nil {
		rollback()
		writeError(w, apperr.Internal(err))
		return
	}

	activationURL := fmt.Sprintf("%s/activation/%s", h.FrontendURL, activationToken)
	body := fmt.Sprintf("Hello %s, please click the link to activate your account: %s", name, activationURL)

	if err := h.Mail.Send(r.Context(), email, "Activate your account", body); err != nil {
		rollback()
		writeError(w, apperr.Mail(err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Please check your email (%s) to activate your account.", email),
	})
}

// ActivateUser handles GET /activation/{activation_token}. The email
// uniqueness check happens again here: the storage-level unique index is the
// authority, and a duplicate-key insert surfaces as the same error as the
// lookup. The pending avatar is deliberately not deleted on a duplicate,
// since clicking the same link twice must not destroy the avatar the first
// click attached to the account.
func (h *UserHandler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Activation.Verify(chi.URLParam(r, "activation_token"))
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.Users.FindByEmail(r.Context(), pending.Email); err == nil {
		writeError(w, apperr.DuplicateAccount("User already exists"))
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

	user := &models.User{
		Name:     pending.Name,
		Email:    pending.Email,
		Password: hashed,
		Avatar:   pending.Avatar,
	}
	if err := h.Users.Insert(r.Context(), user); err != nil {
		if err == store.ErrDuplicateEmail {
			writeError(w, apperr.DuplicateAccount("User already exists"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	h.sendToken(w, http.StatusCreated, user)
}

// Login handles POST /login-user.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, apperr.Validation("Please provide all fields"))
		return
	}

	user, err := h.Users.FindByEmailWithPassword(r.Context(), req.Email)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, apperr.InvalidCredentials("User doesn't exist"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !valid {
		writeError(w, apperr.InvalidCredentials("Invalid email or password"))
		return
	}

	h.sendToken(w, http.StatusCreated, user)
}

// GetUser handles GET /getuser.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("Please login to continue"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// Logout handles GET /logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.ClearCookie(w)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Logout successful",
	})
}

// UpdateInfo handles PUT /update-user-info. The account is looked up by the
// submitted email and the current password must be re-submitted.
func (h *UserHandler) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}

	user, err := h.Users.FindByEmailWithPassword(r.Context(), req.Email)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, apperr.InvalidCredentials("User not found"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !valid {
		writeError(w, apperr.InvalidCredentials("Invalid password"))
		return
	}

	user.Name = req.Name
	user.Email = req.Email
	user.PhoneNumber = req.PhoneNumber

	if err := h.Users.Update(r.Context(), user); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	h.Cache.Delete(r.Context(), "user-info:"+user.ID.Hex())

	user.Password = ""
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// UpdateAvatar handles PUT /update-avatar. The new image is uploaded first;
// the superseded asset is deleted best-effort by the media store.
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	authed, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("Please login to continue"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, apperr.Validation("Invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		// The storefront historically posted the field as "file" too.
		file, _, err = r.FormFile("file")
	}
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

	user, err := h.Users.FindByIDWithPassword(r.Context(), authed.ID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	avatar, err := h.Media.Replace(r.Context(), user.Avatar.PublicID, data, avatarFolder)
	if err != nil {
		writeError(w, apperr.Upload(err))
		return
	}

	user.Avatar = avatar
	if err := h.Users.Update(r.Context(), user); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	h.Cache.Delete(r.Context(), "user-info:"+user.ID.Hex())

	user.Password = ""
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// UpdateAddresses handles PUT /update-user-addresses. Address entries are
// keyed by the caller-supplied type label: a second entry with an already
// used label is rejected unless it names the same entry by id, in which case
// fields are merged in place.
func (h *UserHandler) UpdateAddresses(w http.ResponseWriter, r *http.Request) {
	authed, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("Please login to continue"))
		return
	}

	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}
	if req.AddressType == "" {
		writeError(w, apperr.Validation("Address type is required"))
		return
	}

	user, err := h.Users.FindByIDWithPassword(r.Context(), authed.ID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	var reqID primitive.ObjectID
	if req.ID != "" {
		reqID, err = primitive.ObjectIDFromHex(req.ID)
		if err != nil {
			writeError(w, apperr.Validation("Invalid address id"))
			return
		}
	}

	// The label must stay unique across every other entry, including when
	// an update-by-id tries to take a label a different entry holds.
	for i := range user.Addresses {
		existing := &user.Addresses[i]
		if existing.AddressType == req.AddressType && existing.ID != reqID {
			writeError(w, apperr.DuplicateAddressType(fmt.Sprintf("%s address already exists", req.AddressType)))
			return
		}
	}

	updated := false
	if !reqID.IsZero() {
		for i := range user.Addresses {
			existing := &user.Addresses[i]
			if existing.ID == reqID {
				existing.Country = req.Country
				existing.City = req.City
				existing.Address1 = req.Address1
				existing.Address2 = req.Address2
				existing.ZipCode = req.ZipCode
				existing.AddressType = req.AddressType
				updated = true
				break
			}
		}
	}

	if !updated {
		user.Addresses = append(user.Addresses, models.Address{
			ID:          primitive.NewObjectID(),
			Country:     req.Country,
			City:        req.City,
			Address1:    req.Address1,
			Address2:    req.Address2,
			ZipCode:     req.ZipCode,
			AddressType: req.AddressType,
		})
	}

	if err := h.Users.Update(r.Context(), user); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// DeleteAddress handles DELETE /delete-user-address/{id}. Removing an id
// that matches no entry is a no-op, not an error.
func (h *UserHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	authed, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("Please login to continue"))
		return
	}

	addressID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.Validation("Invalid address id"))
		return
	}

	user, err := h.Users.FindByIDWithPassword(r.Context(), authed.ID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	kept := user.Addresses[:0]
	for _, a := range user.Addresses {
		if a.ID != addressID {
			kept = append(kept, a)
		}
	}
	user.Addresses = kept

	if err := h.Users.Update(r.Context(), user); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// UpdatePassword handles PUT /update-user-password. A previously issued
// session stays valid after the change.
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	authed, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthenticated("Please login to continue"))
		return
	}

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Invalid request body"))
		return
	}

	user, err := h.Users.FindByIDWithPassword(r.Context(), authed.ID)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	valid, err := utils.VerifyPassword(req.OldPassword, user.Password)
	if err != nil || !valid {
		writeError(w, apperr.InvalidCredentials("Old password is incorrect"))
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, apperr.PasswordMismatch("Passwords do not match"))
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	user.Password = hashed

	if err := h.Users.Update(r.Context(), user); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated",
	})
}

// UserInfo handles GET /user-info/{id}, the public profile read used by the
// storefront. Responses are cached briefly in Redis.
func (h *UserHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cacheKey := "user-info:" + id

	var cached models.User
	if h.Cache.Get(r.Context(), cacheKey, &cached) {
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"user":    cached,
		})
		return
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	user, err := h.Users.FindByID(r.Context(), oid)
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	h.Cache.Set(r.Context(), cacheKey, user, services.ProfileCacheTTL)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// AdminAllUsers handles GET /admin-all-users. Newest accounts first.
func (h *UserHandler) AdminAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.All(r.Context())
	if err != nil {
		writeError(w, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"users":   users,
	})
}

// AdminDeleteUser handles DELETE /delete-user/{id}. The account's avatar is
// removed from object storage best-effort.
func (h *UserHandler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.NotFound("User not found"))
		return
	}

	user, err := h.Users.FindByID(r.Context(), oid)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, apperr.NotFound("User not found"))
			return
		}
		writeError(w, apperr.Internal(err))
		return
	}

	if err := h.Users.Delete(r.Context(), oid); err != nil {
		writeError(w, apperr.Internal(err))
		return
	}

	if derr := h.Media.Delete(r.Context(), user.Avatar.PublicID); derr != nil {
		log.Printf("failed to delete avatar %s for removed user: %v", user.Avatar.PublicID, derr)
	}
	h.Cache.Delete(r.Context(), "user-info:"+oid.Hex())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User deleted successfully",
	})
}
