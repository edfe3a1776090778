package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bazario/bazario-backend/internal/models"
)

// MemoryUserStore is an in-memory UserStore with the same semantics as the
// Mongo implementation (unique email, password stripped from default reads,
// newest-first listing). Used by tests and local development without Mongo.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[primitive.ObjectID]models.User{}}
}

func (s *MemoryUserStore) EnsureIndexes(ctx context.Context) error { return nil }

func (s *MemoryUserStore) Insert(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func stripUserPassword(u models.User) *models.User {
	u.Password = ""
	return &u
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return stripUserPassword(u), nil
}

func (s *MemoryUserStore) FindByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return stripUserPassword(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			v := u
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, u := range s.users {
		if id != user.ID && u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryUserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryUserStore) All(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *stripUserPassword(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// MemoryShopStore mirrors the Mongo ShopStore.
type MemoryShopStore struct {
	mu    sync.RWMutex
	shops map[primitive.ObjectID]models.Shop
}

func NewMemoryShopStore() *MemoryShopStore {
	return &MemoryShopStore{shops: map[primitive.ObjectID]models.Shop{}}
}

func (s *MemoryShopStore) EnsureIndexes(ctx context.Context) error { return nil }

func (s *MemoryShopStore) Insert(ctx context.Context, shop *models.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shops {
		if sh.Email == shop.Email {
			return ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = now
	}
	shop.UpdatedAt = now
	if shop.Role == "" {
		shop.Role = "seller"
	}
	if shop.ID.IsZero() {
		shop.ID = primitive.NewObjectID()
	}
	s.shops[shop.ID] = *shop
	return nil
}

func stripShopPassword(sh models.Shop) *models.Shop {
	sh.Password = ""
	return &sh
}

func (s *MemoryShopStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shops[id]
	if !ok {
		return nil, ErrNotFound
	}
	return stripShopPassword(sh), nil
}

func (s *MemoryShopStore) FindByEmail(ctx context.Context, email string) (*models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sh := range s.shops {
		if sh.Email == email {
			return stripShopPassword(sh), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryShopStore) FindByEmailWithPassword(ctx context.Context, email string) (*models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sh := range s.shops {
		if sh.Email == email {
			v := sh
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryShopStore) Update(ctx context.Context, shop *models.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[shop.ID]; !ok {
		return ErrNotFound
	}
	shop.UpdatedAt = time.Now().UTC()
	s.shops[shop.ID] = *shop
	return nil
}

func (s *MemoryShopStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[id]; !ok {
		return ErrNotFound
	}
	delete(s.shops, id)
	return nil
}

func (s *MemoryShopStore) All(ctx context.Context) ([]models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shops := make([]models.Shop, 0, len(s.shops))
	for _, sh := range s.shops {
		shops = append(shops, *stripShopPassword(sh))
	}
	sort.Slice(shops, func(i, j int) bool {
		return shops[i].CreatedAt.After(shops[j].CreatedAt)
	})
	return shops, nil
}

// MemoryEventStore mirrors the Mongo EventStore.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events map[primitive.ObjectID]models.Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{events: map[primitive.ObjectID]models.Event{}}
}

func (s *MemoryEventStore) Insert(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	s.events[event.ID] = *event
	return nil
}

func (s *MemoryEventStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryEventStore) all(match func(models.Event) bool) []models.Event {
	var events []models.Event
	for _, e := range s.events {
		if match(e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events
}

func (s *MemoryEventStore) All(ctx context.Context) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.all(func(models.Event) bool { return true }), nil
}

func (s *MemoryEventStore) AllByShop(ctx context.Context, shopID primitive.ObjectID) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.all(func(e models.Event) bool { return e.ShopID == shopID }), nil
}

func (s *MemoryEventStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// MemoryMessageStore mirrors the Mongo MessageStore.
type MemoryMessageStore struct {
	mu            sync.RWMutex
	conversations map[primitive.ObjectID]models.Conversation
	messages      []models.Message
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{conversations: map[primitive.ObjectID]models.Conversation{}}
}

func (s *MemoryMessageStore) EnsureIndexes(ctx context.Context) error { return nil }

func (s *MemoryMessageStore) FindOrCreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.GroupTitle == conv.GroupTitle {
			v := c
			return &v, false, nil
		}
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	s.conversations[conv.ID] = *conv
	return conv, true, nil
}

func (s *MemoryMessageStore) ConversationsByMember(ctx context.Context, memberID string) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var convs []models.Conversation
	for _, c := range s.conversations {
		for _, m := range c.Members {
			if m == memberID {
				convs = append(convs, c)
				break
			}
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (s *MemoryMessageStore) UpdateLastMessage(ctx context.Context, convID primitive.ObjectID, lastMessage, lastMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[convID]
	if !ok {
		return ErrNotFound
	}
	c.LastMessage = lastMessage
	c.LastMessageID = lastMessageID
	c.UpdatedAt = time.Now().UTC()
	s.conversations[convID] = c
	return nil
}

func (s *MemoryMessageStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MemoryMessageStore) MessagesByConversation(ctx context.Context, convID string, before *time.Time, limit int64) ([]models.Message, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var msgs []models.Message
	for _, m := range s.messages {
		if m.ConversationID != convID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, hasMore, nil
}
