package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/bazario/bazario-backend/internal/handlers"
	"github.com/bazario/bazario-backend/internal/middleware"
	"github.com/bazario/bazario-backend/internal/models"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
)

// Deps bundles what the route tree needs: handlers plus the session signers
// and stores backing the auth guards.
type Deps struct {
	Users  *handlers.UserHandler
	Shops  *handlers.ShopHandler
	Events *handlers.EventHandler
	Chat   *handlers.ChatHandler
	ChatWS *handlers.ChatWSHandler

	UserSessions   *services.Sessions
	SellerSessions *services.Sessions
	UserStore      store.UserStore
	ShopStore      store.ShopStore
}

func SetupRoutes(r *chi.Mux, d Deps) {
	requireAuth := middleware.RequireAuth(d.UserSessions, d.UserStore)
	requireSeller := middleware.RequireSeller(d.SellerSessions, d.ShopStore)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	// Buyer accounts
	r.Route("/api/v2/user", func(r chi.Router) {
		r.Post("/create-user", d.Users.CreateUser)
		r.Get("/activation/{activation_token}", d.Users.ActivateUser)
		r.Post("/login-user", d.Users.Login)
		r.Get("/user-info/{id}", d.Users.UserInfo)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/getuser", d.Users.GetUser)
			r.Get("/logout", d.Users.Logout)
			r.Put("/update-user-info", d.Users.UpdateInfo)
			r.Put("/update-avatar", d.Users.UpdateAvatar)
			r.Put("/update-user-addresses", d.Users.UpdateAddresses)
			r.Delete("/delete-user-address/{id}", d.Users.DeleteAddress)
			r.Put("/update-user-password", d.Users.UpdatePassword)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/admin-all-users", d.Users.AdminAllUsers)
				r.Delete("/delete-user/{id}", d.Users.AdminDeleteUser)
			})
		})
	})

	// Seller accounts
	r.Route("/api/v2/shop", func(r chi.Router) {
		r.Post("/create-shop", d.Shops.CreateShop)
		r.Get("/activation/{activation_token}", d.Shops.ActivateShop)
		r.Post("/login-shop", d.Shops.Login)
		r.Get("/get-shop-info/{id}", d.Shops.ShopInfo)

		r.Group(func(r chi.Router) {
			r.Use(requireSeller)
			r.Get("/getSeller", d.Shops.GetSeller)
			r.Get("/logout", d.Shops.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Get("/admin-all-sellers", d.Shops.AdminAllSellers)
			r.Delete("/delete-seller/{id}", d.Shops.AdminDeleteSeller)
		})
	})

	// Shop events
	r.Route("/api/v2/event", func(r chi.Router) {
		r.Get("/get-all-events", d.Events.All)
		r.Get("/get-all-events/{id}", d.Events.AllByShop)

		r.Group(func(r chi.Router) {
			r.Use(requireSeller)
			r.Post("/create-event", d.Events.Create)
			r.Delete("/delete-shop-event/{id}", d.Events.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Get("/admin-all-events", d.Events.AdminAll)
		})
	})

	// Buyer-seller conversations (MongoDB history + Redis Pub/Sub fan-out)
	r.Route("/api/v2/conversation", func(r chi.Router) {
		r.Post("/create-new-conversation", d.Chat.CreateConversation)
		r.Put("/update-last-message/{id}", d.Chat.UpdateLastMessage)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/get-all-conversation-user/{id}", d.Chat.UserConversations)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireSeller)
			r.Get("/get-all-conversation-seller/{id}", d.Chat.SellerConversations)
		})
	})

	r.Route("/api/v2/message", func(r chi.Router) {
		r.Post("/create-new-message", d.Chat.CreateMessage)
		r.Get("/get-all-messages/{id}", d.Chat.ConversationMessages)
	})

	// WebSocket gateway for realtime chat
	r.Get("/ws/chat", d.ChatWS.ServeHTTP)
}
