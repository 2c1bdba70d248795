package store

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"shelfmark/pkg/domain"
)

// MemoryStore keeps everything in-process. It mirrors the Postgres store's
// semantics (aggregates, conflicts, cascades) so the service layer can be
// exercised without a database.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	emails      map[string]string // email -> user ID
	books       map[string]domain.Book
	bookOrder   []string
	authors     map[string]domain.Author
	authorOrder []string
	categories  map[string]domain.Category
	catOrder    []string
	publishers  map[string]domain.Publisher
	pubOrder    []string
	reviews     map[string]domain.Review
	orders      map[string]domain.Order
	endpoints   map[string]domain.WebhookEndpoint
	epOrder     []string
	deliveries  map[string]domain.WebhookDelivery
	delOrder    []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		emails:     make(map[string]string),
		books:      make(map[string]domain.Book),
		authors:    make(map[string]domain.Author),
		categories: make(map[string]domain.Category),
		publishers: make(map[string]domain.Publisher),
		reviews:    make(map[string]domain.Review),
		orders:     make(map[string]domain.Order),
		endpoints:  make(map[string]domain.WebhookEndpoint),
		deliveries: make(map[string]domain.WebhookDelivery),
	}
}

// users

func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.emails[u.Email]; exists {
		return domain.NewConflictError("email", "an account with this email already exists")
	}
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// books

func (m *MemoryStore) CreateBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.books {
		if existing.ISBN == b.ISBN {
			return domain.NewConflictError("isbn", "a book with this ISBN already exists")
		}
	}
	m.books[b.ID] = b
	m.bookOrder = append(m.bookOrder, b.ID)
	return nil
}

func (m *MemoryStore) UpdateBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.books[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, other := range m.books {
		if other.ID != b.ID && other.ISBN == b.ISBN {
			return domain.NewConflictError("isbn", "a book with this ISBN already exists")
		}
	}
	b.CreatedAt = existing.CreatedAt
	b.CoverKey = existing.CoverKey
	b.UpdatedAt = time.Now().UTC()
	m.books[b.ID] = b
	return nil
}

func (m *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	return m.aggregateBook(b), true, nil
}

func (m *MemoryStore) DeleteBook(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return domain.ErrNotFound
	}
	m.deleteBookLocked(id)
	return nil
}

func (m *MemoryStore) deleteBookLocked(id string) {
	delete(m.books, id)
	for i, bid := range m.bookOrder {
		if bid == id {
			m.bookOrder = append(m.bookOrder[:i], m.bookOrder[i+1:]...)
			break
		}
	}
	for rid, r := range m.reviews {
		if r.BookID == id {
			delete(m.reviews, rid)
		}
	}
}

func (m *MemoryStore) QueryBooks(q BookQuery) ([]domain.Book, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Book, 0, len(m.bookOrder))
	for _, id := range m.bookOrder {
		b, ok := m.books[id]
		if !ok || !matchesBook(b, q) {
			continue
		}
		matched = append(matched, m.aggregateBook(b))
	}
	total := int64(len(matched))
	sortBooks(matched, q.Sort)
	if q.PageSize > 0 {
		start := q.Offset()
		if start >= len(matched) {
			return []domain.Book{}, total, nil
		}
		end := start + q.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func matchesBook(b domain.Book, q BookQuery) bool {
	if q.Status != "" && b.Status != q.Status {
		return false
	}
	if q.AuthorID != "" && b.AuthorID != q.AuthorID {
		return false
	}
	if q.PublisherID != "" && b.PublisherID != q.PublisherID {
		return false
	}
	if q.CategoryID != "" {
		found := false
		for _, cid := range b.CategoryIDs {
			if cid == q.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		needle := strings.ToLower(term)
		if !strings.Contains(strings.ToLower(b.Title), needle) &&
			!strings.Contains(strings.ToLower(b.Subtitle), needle) &&
			!strings.Contains(strings.ToLower(b.ISBN), needle) &&
			!strings.Contains(strings.ToLower(b.Description), needle) {
			return false
		}
	}
	return true
}

func sortBooks(books []domain.Book, keys []SortKey) {
	if len(keys) == 0 {
		keys = []SortKey{{Field: SortCreatedAt, Desc: true}}
	}
	sort.SliceStable(books, func(i, j int) bool {
		for _, key := range keys {
			cmp := compareBooks(books[i], books[j], key.Field)
			if cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return books[i].ID < books[j].ID
	})
}

func compareBooks(a, b domain.Book, field string) int {
	switch field {
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	case SortPrice:
		return compareFloat(a.Price, b.Price)
	case SortPublicationDate:
		return compareTime(a.PublicationDate, b.PublicationDate)
	case SortPopularity:
		return int(a.ReviewsCount - b.ReviewsCount)
	default:
		return compareTime(a.CreatedAt, b.CreatedAt)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func (m *MemoryStore) Bestsellers(limit int) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	books := make([]domain.Book, 0, len(m.bookOrder))
	for _, id := range m.bookOrder {
		if b, ok := m.books[id]; ok {
			books = append(books, m.aggregateBook(b))
		}
	}
	sort.SliceStable(books, func(i, j int) bool {
		if books[i].ReviewsCount != books[j].ReviewsCount {
			return books[i].ReviewsCount > books[j].ReviewsCount
		}
		return books[i].ID < books[j].ID
	})
	if limit > 0 && len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func (m *MemoryStore) SetBookCover(id, coverKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.CoverKey = coverKey
	b.UpdatedAt = time.Now().UTC()
	m.books[id] = b
	return nil
}

// aggregateBook fills the derived review statistics. Average is the
// arithmetic mean rounded to 2 decimals, absent when there are no reviews.
func (m *MemoryStore) aggregateBook(b domain.Book) domain.Book {
	var count int64
	var sum int
	for _, r := range m.reviews {
		if r.BookID == b.ID {
			count++
			sum += r.Rating
		}
	}
	b.ReviewsCount = count
	if count > 0 {
		avg := math.Round(float64(sum)/float64(count)*100) / 100
		b.AverageRating = &avg
	} else {
		b.AverageRating = nil
	}
	return b
}

// authors

func (m *MemoryStore) CreateAuthor(a domain.Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authors[a.ID] = a
	m.authorOrder = append(m.authorOrder, a.ID)
	return nil
}

func (m *MemoryStore) UpdateAuthor(a domain.Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.authors[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	m.authors[a.ID] = a
	return nil
}

func (m *MemoryStore) GetAuthor(id string) (domain.Author, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.authors[id]
	if !ok {
		return domain.Author{}, false, nil
	}
	a.BooksCount = m.countBooksLocked(func(b domain.Book) bool { return b.AuthorID == id })
	return a, true, nil
}

// DeleteAuthor cascades to the author's books and their reviews.
func (m *MemoryStore) DeleteAuthor(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.authors[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.authors, id)
	for i, aid := range m.authorOrder {
		if aid == id {
			m.authorOrder = append(m.authorOrder[:i], m.authorOrder[i+1:]...)
			break
		}
	}
	var doomed []string
	for bid, b := range m.books {
		if b.AuthorID == id {
			doomed = append(doomed, bid)
		}
	}
	for _, bid := range doomed {
		m.deleteBookLocked(bid)
	}
	return nil
}

func (m *MemoryStore) ListAuthors() ([]domain.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	authors := make([]domain.Author, 0, len(m.authorOrder))
	for _, id := range m.authorOrder {
		a, ok := m.authors[id]
		if !ok {
			continue
		}
		authorID := id
		a.BooksCount = m.countBooksLocked(func(b domain.Book) bool { return b.AuthorID == authorID })
		authors = append(authors, a)
	}
	sort.SliceStable(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })
	return authors, nil
}

func (m *MemoryStore) countBooksLocked(match func(domain.Book) bool) int64 {
	var n int64
	for _, b := range m.books {
		if match(b) {
			n++
		}
	}
	return n
}

// categories

func (m *MemoryStore) CreateCategory(c domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return domain.NewConflictError("name", "a category with this name already exists")
		}
	}
	m.categories[c.ID] = c
	m.catOrder = append(m.catOrder, c.ID)
	return nil
}

func (m *MemoryStore) UpdateCategory(c domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.categories[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.categories[c.ID] = c
	return nil
}

func (m *MemoryStore) GetCategory(id string) (domain.Category, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return domain.Category{}, false, nil
	}
	c.BooksCount = m.countBooksLocked(func(b domain.Book) bool { return containsString(b.CategoryIDs, id) })
	return c, true, nil
}

func (m *MemoryStore) DeleteCategory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.categories, id)
	for i, cid := range m.catOrder {
		if cid == id {
			m.catOrder = append(m.catOrder[:i], m.catOrder[i+1:]...)
			break
		}
	}
	for bid, b := range m.books {
		b.CategoryIDs = removeString(b.CategoryIDs, id)
		m.books[bid] = b
	}
	return nil
}

func (m *MemoryStore) ListCategories() ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	categories := make([]domain.Category, 0, len(m.catOrder))
	for _, id := range m.catOrder {
		c, ok := m.categories[id]
		if !ok {
			continue
		}
		catID := id
		c.BooksCount = m.countBooksLocked(func(b domain.Book) bool { return containsString(b.CategoryIDs, catID) })
		categories = append(categories, c)
	}
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func containsString(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}

func removeString(values []string, needle string) []string {
	out := values[:0]
	for _, v := range values {
		if v != needle {
			out = append(out, v)
		}
	}
	return out
}

// publishers

func (m *MemoryStore) CreatePublisher(p domain.Publisher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishers[p.ID] = p
	m.pubOrder = append(m.pubOrder, p.ID)
	return nil
}

func (m *MemoryStore) UpdatePublisher(p domain.Publisher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.publishers[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	m.publishers[p.ID] = p
	return nil
}

func (m *MemoryStore) GetPublisher(id string) (domain.Publisher, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.publishers[id]
	if !ok {
		return domain.Publisher{}, false, nil
	}
	p.BooksCount = m.countBooksLocked(func(b domain.Book) bool { return b.PublisherID == id })
	return p, true, nil
}

func (m *MemoryStore) DeletePublisher(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.publishers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.publishers, id)
	for i, pid := range m.pubOrder {
		if pid == id {
			m.pubOrder = append(m.pubOrder[:i], m.pubOrder[i+1:]...)
			break
		}
	}
	for bid, b := range m.books {
		if b.PublisherID == id {
			b.PublisherID = ""
			m.books[bid] = b
		}
	}
	return nil
}

func (m *MemoryStore) ListPublishers() ([]domain.Publisher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	publishers := make([]domain.Publisher, 0, len(m.pubOrder))
	for _, id := range m.pubOrder {
		p, ok := m.publishers[id]
		if !ok {
			continue
		}
		pubID := id
		p.BooksCount = m.countBooksLocked(func(b domain.Book) bool { return b.PublisherID == pubID })
		publishers = append(publishers, p)
	}
	sort.SliceStable(publishers, func(i, j int) bool { return publishers[i].Name < publishers[j].Name })
	return publishers, nil
}

// reviews

func (m *MemoryStore) CreateReview(r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.BookID == r.BookID && existing.UserID == r.UserID {
			return domain.NewConflictError("book", "user has already reviewed this book")
		}
	}
	m.reviews[r.ID] = r
	return nil
}

func (m *MemoryStore) UpdateReview(r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reviews[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Rating = r.Rating
	existing.Title = r.Title
	existing.Comment = r.Comment
	existing.UpdatedAt = time.Now().UTC()
	m.reviews[r.ID] = existing
	return nil
}

func (m *MemoryStore) GetReview(id string) (domain.Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	return r, ok, nil
}

func (m *MemoryStore) DeleteReview(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *MemoryStore) ListReviewsByBook(bookID string) ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reviews := make([]domain.Review, 0)
	for _, r := range m.reviews {
		if r.BookID == bookID {
			reviews = append(reviews, r)
		}
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
		}
		return reviews[i].ID < reviews[j].ID
	})
	return reviews, nil
}

// orders

func (m *MemoryStore) CreateOrder(o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

// webhooks

func (m *MemoryStore) CreateEndpoint(e domain.WebhookEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints[e.ID] = e
	m.epOrder = append(m.epOrder, e.ID)
	return nil
}

func (m *MemoryStore) UpdateEndpoint(e domain.WebhookEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.endpoints[e.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.URL = e.URL
	existing.Events = e.Events
	existing.Active = e.Active
	existing.UpdatedAt = time.Now().UTC()
	m.endpoints[e.ID] = existing
	return nil
}

func (m *MemoryStore) GetEndpoint(id string) (domain.WebhookEndpoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.endpoints[id]
	return e, ok, nil
}

func (m *MemoryStore) ListEndpoints() ([]domain.WebhookEndpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	endpoints := make([]domain.WebhookEndpoint, 0, len(m.epOrder))
	for _, id := range m.epOrder {
		if e, ok := m.endpoints[id]; ok {
			endpoints = append(endpoints, e)
		}
	}
	return endpoints, nil
}

func (m *MemoryStore) ListActiveEndpoints(eventType string) ([]domain.WebhookEndpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	endpoints := make([]domain.WebhookEndpoint, 0)
	for _, id := range m.epOrder {
		e, ok := m.endpoints[id]
		if !ok || !e.Active || !e.SubscribedTo(eventType) {
			continue
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, nil
}

func (m *MemoryStore) CreateDelivery(d domain.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries[d.ID] = d
	m.delOrder = append(m.delOrder, d.ID)
	return nil
}

func (m *MemoryStore) FinalizeDelivery(id string, status domain.DeliveryStatus, responseStatus *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = status
	d.ResponseStatus = responseStatus
	d.UpdatedAt = time.Now().UTC()
	m.deliveries[id] = d
	return nil
}

func (m *MemoryStore) ListDeliveriesByEndpoint(endpointID string) ([]domain.WebhookDelivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// newest first, matching the Postgres store
	deliveries := make([]domain.WebhookDelivery, 0)
	for i := len(m.delOrder) - 1; i >= 0; i-- {
		if d, ok := m.deliveries[m.delOrder[i]]; ok && d.EndpointID == endpointID {
			deliveries = append(deliveries, d)
		}
	}
	return deliveries, nil
}
