package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"trade-service/internal/models"
)

// In-memory repositories so engine invariants run without Postgres.

type memItems struct {
	mu     sync.Mutex
	rows   map[int64]models.Item
	nextID int64
}

func newMemItems() *memItems {
	return &memItems{rows: make(map[int64]models.Item)}
}

func (m *memItems) Create(_ context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	item.ID = m.nextID
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	m.rows[item.ID] = *item
	return nil
}

func (m *memItems) GetByID(_ context.Context, id int64) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", models.ErrNotFound, id)
	}
	return &row, nil
}

func (m *memItems) Update(_ context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[item.ID]; !ok {
		return fmt.Errorf("%w: item %d", models.ErrNotFound, item.ID)
	}
	item.UpdatedAt = time.Now()
	m.rows[item.ID] = *item
	return nil
}

func (m *memItems) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memItems) ByOwner(_ context.Context, ownerID int64) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Item
	for _, row := range m.rows {
		if row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memItems) SearchListings(_ context.Context, filter ListingFilter) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Item
	for _, row := range m.rows {
		if row.Status != models.ListingPublic || !row.Available {
			continue
		}
		if filter.ExcludeOwner != 0 && row.OwnerID == filter.ExcludeOwner {
			continue
		}
		if filter.Category != "" && row.Category != filter.Category {
			continue
		}
		if filter.Condition != "" && row.Condition != filter.Condition {
			continue
		}
		if filter.OfferPolicy != "" && row.OfferPolicy != filter.OfferPolicy {
			continue
		}
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			hay := strings.ToLower(row.Title + " " + row.Description + " " + row.Category)
			if !strings.Contains(hay, q) {
				continue
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memOffers struct {
	mu     sync.Mutex
	rows   map[int64]models.Offer
	nextID int64
}

func newMemOffers() *memOffers {
	return &memOffers{rows: make(map[int64]models.Offer)}
}

func (m *memOffers) Create(_ context.Context, offer *models.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	offer.ID = m.nextID
	offer.CreatedAt = time.Now()
	offer.UpdatedAt = offer.CreatedAt
	m.rows[offer.ID] = *offer
	return nil
}

func (m *memOffers) GetByID(_ context.Context, id int64) (*models.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: offer %d", models.ErrNotFound, id)
	}
	return &row, nil
}

func (m *memOffers) UpdateStatus(_ context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("%w: offer %d", models.ErrNotFound, id)
	}
	row.Status = status
	row.UpdatedAt = time.Now()
	m.rows[id] = row
	return nil
}

func (m *memOffers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memOffers) DeletePendingByBuyerAndListing(_ context.Context, buyerID, listingID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.BuyerID == buyerID && row.ListingID == listingID && row.Status == models.OfferStatusPending {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memOffers) DeleteByItem(_ context.Context, itemID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.ListingID == itemID || (row.CollateralItemID != nil && *row.CollateralItemID == itemID) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memOffers) PendingByListing(_ context.Context, listingID int64) ([]models.Offer, error) {
	return m.filter(func(o models.Offer) bool {
		return o.ListingID == listingID && o.Status == models.OfferStatusPending
	}), nil
}

func (m *memOffers) PendingByCollateral(_ context.Context, itemID int64) ([]models.Offer, error) {
	return m.filter(func(o models.Offer) bool {
		return o.CollateralItemID != nil && *o.CollateralItemID == itemID &&
			o.Status == models.OfferStatusPending
	}), nil
}

func (m *memOffers) HasActiveByItem(_ context.Context, itemID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Status != models.OfferStatusPending && row.Status != models.OfferStatusAccepted {
			continue
		}
		if row.ListingID == itemID || (row.CollateralItemID != nil && *row.CollateralItemID == itemID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memOffers) ByListing(_ context.Context, listingID int64) ([]models.Offer, error) {
	return m.filter(func(o models.Offer) bool { return o.ListingID == listingID }), nil
}

func (m *memOffers) BySeller(_ context.Context, sellerID int64) ([]models.Offer, error) {
	return m.filter(func(o models.Offer) bool { return o.SellerID == sellerID }), nil
}

func (m *memOffers) ByBuyer(_ context.Context, buyerID int64) ([]models.Offer, error) {
	return m.filter(func(o models.Offer) bool { return o.BuyerID == buyerID }), nil
}

func (m *memOffers) filter(keep func(models.Offer) bool) []models.Offer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Offer
	for _, row := range m.rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

type memUsers struct {
	mu     sync.Mutex
	rows   map[int64]models.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{rows: make(map[int64]models.User)}
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.rows[user.ID] = *user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	return &row, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Username == username {
			u := row
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, username)
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Email == email {
			u := row
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, email)
}

type memChats struct {
	mu         sync.Mutex
	chats      map[int64]models.Chat
	messages   map[int64][]models.Message
	nextChatID int64
	nextMsgID  int64
}

func newMemChats() *memChats {
	return &memChats{
		chats:    make(map[int64]models.Chat),
		messages: make(map[int64][]models.Message),
	}
}

func (m *memChats) GetOrCreate(_ context.Context, userA, userB int64) (*models.Chat, error) {
	if userA > userB {
		userA, userB = userB, userA
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chats {
		if c.UserAID == userA && c.UserBID == userB {
			chat := c
			return &chat, nil
		}
	}
	m.nextChatID++
	chat := models.Chat{
		ID:        m.nextChatID,
		UserAID:   userA,
		UserBID:   userB,
		CreatedAt: time.Now(),
	}
	m.chats[chat.ID] = chat
	return &chat, nil
}

func (m *memChats) GetByID(_ context.Context, id int64) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[id]
	if !ok {
		return nil, fmt.Errorf("%w: chat %d", models.ErrNotFound, id)
	}
	return &chat, nil
}

func (m *memChats) ByUser(_ context.Context, userID int64) ([]models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Chat
	for _, c := range m.chats {
		if c.Involves(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (m *memChats) AppendMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[msg.ChatID]
	if !ok {
		return fmt.Errorf("%w: chat %d", models.ErrNotFound, msg.ChatID)
	}
	m.nextMsgID++
	msg.ID = m.nextMsgID
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], *msg)
	chat.LastMessageAt = msg.SentAt
	m.chats[msg.ChatID] = chat
	return nil
}

func (m *memChats) Messages(_ context.Context, chatID int64) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Message, len(m.messages[chatID]))
	copy(out, m.messages[chatID])
	return out, nil
}

func (m *memChats) LastMessage(_ context.Context, chatID int64) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[chatID]
	if len(msgs) == 0 {
		return nil, nil
	}
	last := msgs[len(msgs)-1]
	return &last, nil
}

// capturePublisher records published events in order
type capturePublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *capturePublisher) PublishOfferCreated(_ context.Context, event *models.OfferCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) PublishOfferAccepted(_ context.Context, event *models.OfferAcceptedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) PublishOfferRejected(_ context.Context, event *models.OfferRejectedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) last() interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

// engineFixture wires the services over the in-memory repositories
type engineFixture struct {
	items     *memItems
	offers    *memOffers
	users     *memUsers
	chats     *memChats
	publisher *capturePublisher
	itemSvc   *ItemService
	offerSvc  *OfferService
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		items:     newMemItems(),
		offers:    newMemOffers(),
		users:     newMemUsers(),
		chats:     newMemChats(),
		publisher: &capturePublisher{},
	}
	locks := NewKeyedMutex()
	f.itemSvc = NewItemService(f.items, f.offers, locks)
	f.offerSvc = NewOfferService(f.offers, f.items, f.users, f.itemSvc, locks, f.publisher)
	return f
}

func (f *engineFixture) addUser(name, username string) *models.User {
	user := &models.User{Name: name, Username: username, Email: username + "@example.com"}
	_ = f.users.Create(context.Background(), user)
	return user
}

func (f *engineFixture) addListing(ownerID int64, title, policy string) *models.Item {
	item := &models.Item{
		OwnerID:     ownerID,
		Title:       title,
		Category:    "Misc",
		Condition:   "Good",
		Status:      models.ListingPublic,
		OfferPolicy: policy,
		Available:   true,
	}
	_ = f.items.Create(context.Background(), item)
	return item
}

func (f *engineFixture) addPrivateItem(ownerID int64, title string) *models.Item {
	item := &models.Item{
		OwnerID:     ownerID,
		Title:       title,
		Category:    "Misc",
		Condition:   "Good",
		Status:      models.ListingPrivate,
		OfferPolicy: models.OfferKindBoth,
		Available:   true,
	}
	_ = f.items.Create(context.Background(), item)
	return item
}
