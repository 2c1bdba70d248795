package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shelfmark/pkg/domain"
)

const migrateLockID int64 = 52410524

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{}, &AuthorModel{}, &CategoryModel{}, &PublisherModel{},
			&BookModel{}, &BookCategoryModel{}, &ReviewModel{}, &OrderModel{},
			&WebhookEndpointModel{}, &WebhookDeliveryModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'book_models'
					AND constraint_name = 'book_models_author_id_fkey'
				) THEN
					ALTER TABLE book_models
					ADD CONSTRAINT book_models_author_id_fkey
					FOREIGN KEY (author_id) REFERENCES author_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'book_models'
					AND constraint_name = 'book_models_publisher_id_fkey'
				) THEN
					ALTER TABLE book_models
					ADD CONSTRAINT book_models_publisher_id_fkey
					FOREIGN KEY (publisher_id) REFERENCES publisher_models(id) ON DELETE SET NULL;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'review_models'
					AND constraint_name = 'review_models_book_id_fkey'
				) THEN
					ALTER TABLE review_models
					ADD CONSTRAINT review_models_book_id_fkey
					FOREIGN KEY (book_id) REFERENCES book_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'book_category_models'
					AND constraint_name = 'book_category_models_book_id_fkey'
				) THEN
					ALTER TABLE book_category_models
					ADD CONSTRAINT book_category_models_book_id_fkey
					FOREIGN KEY (book_id) REFERENCES book_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'book_category_models'
					AND constraint_name = 'book_category_models_category_id_fkey'
				) THEN
					ALTER TABLE book_category_models
					ADD CONSTRAINT book_category_models_category_id_fkey
					FOREIGN KEY (category_id) REFERENCES category_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'webhook_delivery_models'
					AND constraint_name = 'webhook_delivery_models_endpoint_id_fkey'
				) THEN
					ALTER TABLE webhook_delivery_models
					ADD CONSTRAINT webhook_delivery_models_endpoint_id_fkey
					FOREIGN KEY (endpoint_id) REFERENCES webhook_endpoint_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// users

// CreateUser registers a user; a duplicate email surfaces as a conflict.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("email", "an account with this email already exists")
		}
		return err
	}
	return nil
}

func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// books

// bookRow is a book joined with its review aggregates.
type bookRow struct {
	BookModel
	ReviewsCount  int64
	AverageRating *float64
}

const bookAggregateSelect = "book_models.*, COUNT(r.id) AS reviews_count, ROUND(AVG(r.rating)::numeric, 2) AS average_rating"

// aggregatedBooks starts a book query carrying reviews_count and
// average_rating in the same SELECT, so the round-trip count stays constant
// regardless of result size.
func (s *GormStore) aggregatedBooks() *gorm.DB {
	return s.db.Model(&BookModel{}).
		Select(bookAggregateSelect).
		Joins("LEFT JOIN review_models r ON r.book_id = book_models.id").
		Group("book_models.id")
}

// CreateBook stores a book and its category memberships.
func (s *GormStore) CreateBook(b domain.Book) error {
	model := bookToModel(b)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		return replaceBookCategories(tx, b.ID, b.CategoryIDs)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("isbn", "a book with this ISBN already exists")
	}
	return err
}

// UpdateBook replaces the book row and its category memberships.
func (s *GormStore) UpdateBook(b domain.Book) error {
	model := bookToModel(b)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&BookModel{}).Where("id = ?", b.ID).Updates(map[string]any{
			"title":            model.Title,
			"subtitle":         model.Subtitle,
			"description":      model.Description,
			"isbn":             model.ISBN,
			"price":            model.Price,
			"status":           model.Status,
			"publication_date": model.PublicationDate,
			"author_id":        model.AuthorID,
			"publisher_id":     model.PublisherID,
			"updated_at":       time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := tx.Delete(&BookCategoryModel{}, "book_id = ?", b.ID).Error; err != nil {
			return err
		}
		return replaceBookCategories(tx, b.ID, b.CategoryIDs)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("isbn", "a book with this ISBN already exists")
	}
	return err
}

func replaceBookCategories(tx *gorm.DB, bookID string, categoryIDs []string) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	rows := make([]BookCategoryModel, 0, len(categoryIDs))
	for _, catID := range categoryIDs {
		rows = append(rows, BookCategoryModel{BookID: bookID, CategoryID: catID})
	}
	return tx.Create(&rows).Error
}

// GetBook retrieves one book with its aggregates and category IDs.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var row bookRow
	err := s.aggregatedBooks().Where("book_models.id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	cats, err := s.categoryIDsForBooks([]string{id})
	if err != nil {
		return domain.Book{}, false, err
	}
	book := bookFromRow(row)
	book.CategoryIDs = cats[id]
	return book, true, nil
}

// DeleteBook removes the book; reviews and category links cascade in the DB.
func (s *GormStore) DeleteBook(id string) error {
	res := s.db.Delete(&BookModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// QueryBooks runs a filtered, searched, ordered, paginated collection query.
// It issues exactly three statements: one count, one page fetch with
// aggregates, one category-membership fetch for the returned page.
func (s *GormStore) QueryBooks(q BookQuery) ([]domain.Book, int64, error) {
	var total int64
	if err := applyBookFilters(s.db.Model(&BookModel{}), q).
		Distinct("book_models.id").
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tx := applyBookFilters(s.aggregatedBooks(), q)
	for _, key := range q.Sort {
		tx = tx.Order(orderClause(key))
	}
	tx = tx.Order("book_models.id ASC")
	if q.PageSize > 0 {
		tx = tx.Limit(q.PageSize).Offset(q.Offset())
	}
	var rows []bookRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	books, err := s.booksFromRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func applyBookFilters(tx *gorm.DB, q BookQuery) *gorm.DB {
	if q.Status != "" {
		tx = tx.Where("book_models.status = ?", string(q.Status))
	}
	if q.AuthorID != "" {
		tx = tx.Where("book_models.author_id = ?", q.AuthorID)
	}
	if q.PublisherID != "" {
		tx = tx.Where("book_models.publisher_id = ?", q.PublisherID)
	}
	if q.CategoryID != "" {
		tx = tx.Joins("JOIN book_category_models bc ON bc.book_id = book_models.id").
			Where("bc.category_id = ?", q.CategoryID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := "%" + term + "%"
		tx = tx.Where(
			"book_models.title ILIKE ? OR book_models.subtitle ILIKE ? OR book_models.isbn ILIKE ? OR book_models.description ILIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	return tx
}

func orderClause(key SortKey) string {
	column := "book_models.created_at"
	switch key.Field {
	case SortTitle:
		column = "book_models.title"
	case SortPrice:
		column = "book_models.price"
	case SortPublicationDate:
		column = "book_models.publication_date"
	case SortCreatedAt:
		column = "book_models.created_at"
	case SortPopularity:
		column = "reviews_count"
	}
	if key.Desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// Bestsellers returns the top books by review count, ties broken by ID.
func (s *GormStore) Bestsellers(limit int) ([]domain.Book, error) {
	var rows []bookRow
	if err := s.aggregatedBooks().
		Order("reviews_count DESC").
		Order("book_models.id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return s.booksFromRows(rows)
}

func (s *GormStore) SetBookCover(id, coverKey string) error {
	res := s.db.Model(&BookModel{}).Where("id = ?", id).Updates(map[string]any{
		"cover_key":  coverKey,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) booksFromRows(rows []bookRow) ([]domain.Book, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	cats, err := s.categoryIDsForBooks(ids)
	if err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(rows))
	for _, row := range rows {
		book := bookFromRow(row)
		book.CategoryIDs = cats[row.ID]
		books = append(books, book)
	}
	return books, nil
}

// categoryIDsForBooks loads membership for a whole page in one statement.
func (s *GormStore) categoryIDsForBooks(bookIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}
	var links []BookCategoryModel
	if err := s.db.Where("book_id IN ?", bookIDs).Order("category_id ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	for _, link := range links {
		out[link.BookID] = append(out[link.BookID], link.CategoryID)
	}
	return out, nil
}

// authors

type authorRow struct {
	AuthorModel
	BooksCount int64
}

func (s *GormStore) aggregatedAuthors() *gorm.DB {
	return s.db.Model(&AuthorModel{}).
		Select("author_models.*, COUNT(b.id) AS books_count").
		Joins("LEFT JOIN book_models b ON b.author_id = author_models.id").
		Group("author_models.id")
}

func (s *GormStore) CreateAuthor(a domain.Author) error {
	model := authorToModel(a)
	return s.db.Create(&model).Error
}

func (s *GormStore) UpdateAuthor(a domain.Author) error {
	res := s.db.Model(&AuthorModel{}).Where("id = ?", a.ID).Updates(map[string]any{
		"name":       a.Name,
		"bio":        a.Bio,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) GetAuthor(id string) (domain.Author, bool, error) {
	var row authorRow
	err := s.aggregatedAuthors().Where("author_models.id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Author{}, false, nil
		}
		return domain.Author{}, false, err
	}
	return authorFromRow(row), true, nil
}

// DeleteAuthor removes the author; their books (and those books' reviews)
// cascade in the DB.
func (s *GormStore) DeleteAuthor(id string) error {
	res := s.db.Delete(&AuthorModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAuthors returns all authors with their book counts in one statement.
func (s *GormStore) ListAuthors() ([]domain.Author, error) {
	var rows []authorRow
	if err := s.aggregatedAuthors().Order("author_models.name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	authors := make([]domain.Author, 0, len(rows))
	for _, row := range rows {
		authors = append(authors, authorFromRow(row))
	}
	return authors, nil
}

// categories

type categoryRow struct {
	CategoryModel
	BooksCount int64
}

func (s *GormStore) aggregatedCategories() *gorm.DB {
	return s.db.Model(&CategoryModel{}).
		Select("category_models.*, COUNT(bc.book_id) AS books_count").
		Joins("LEFT JOIN book_category_models bc ON bc.category_id = category_models.id").
		Group("category_models.id")
}

func (s *GormStore) CreateCategory(c domain.Category) error {
	model := categoryToModel(c)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("name", "a category with this name already exists")
		}
		return err
	}
	return nil
}

func (s *GormStore) UpdateCategory(c domain.Category) error {
	res := s.db.Model(&CategoryModel{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"updated_at":  time.Now().UTC(),
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("name", "a category with this name already exists")
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) GetCategory(id string) (domain.Category, bool, error) {
	var row categoryRow
	err := s.aggregatedCategories().Where("category_models.id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, false, nil
		}
		return domain.Category{}, false, err
	}
	return categoryFromRow(row), true, nil
}

func (s *GormStore) DeleteCategory(id string) error {
	res := s.db.Delete(&CategoryModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) ListCategories() ([]domain.Category, error) {
	var rows []categoryRow
	if err := s.aggregatedCategories().Order("category_models.name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, categoryFromRow(row))
	}
	return categories, nil
}

// publishers

type publisherRow struct {
	PublisherModel
	BooksCount int64
}

func (s *GormStore) aggregatedPublishers() *gorm.DB {
	return s.db.Model(&PublisherModel{}).
		Select("publisher_models.*, COUNT(b.id) AS books_count").
		Joins("LEFT JOIN book_models b ON b.publisher_id = publisher_models.id").
		Group("publisher_models.id")
}

func (s *GormStore) CreatePublisher(p domain.Publisher) error {
	model := publisherToModel(p)
	return s.db.Create(&model).Error
}

func (s *GormStore) UpdatePublisher(p domain.Publisher) error {
	res := s.db.Model(&PublisherModel{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":       p.Name,
		"website":    p.Website,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) GetPublisher(id string) (domain.Publisher, bool, error) {
	var row publisherRow
	err := s.aggregatedPublishers().Where("publisher_models.id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Publisher{}, false, nil
		}
		return domain.Publisher{}, false, err
	}
	return publisherFromRow(row), true, nil
}

func (s *GormStore) DeletePublisher(id string) error {
	res := s.db.Delete(&PublisherModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) ListPublishers() ([]domain.Publisher, error) {
	var rows []publisherRow
	if err := s.aggregatedPublishers().Order("publisher_models.name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	publishers := make([]domain.Publisher, 0, len(rows))
	for _, row := range rows {
		publishers = append(publishers, publisherFromRow(row))
	}
	return publishers, nil
}

// reviews

// CreateReview stores a review. The (book, user) unique index is the sole
// guard against duplicate reviews; a violation surfaces as a conflict.
func (s *GormStore) CreateReview(r domain.Review) error {
	model := reviewToModel(r)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("book", "user has already reviewed this book")
		}
		return err
	}
	return nil
}

func (s *GormStore) UpdateReview(r domain.Review) error {
	res := s.db.Model(&ReviewModel{}).Where("id = ?", r.ID).Updates(map[string]any{
		"rating":     r.Rating,
		"title":      r.Title,
		"comment":    r.Comment,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) GetReview(id string) (domain.Review, bool, error) {
	var model ReviewModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	return reviewFromModel(model), true, nil
}

func (s *GormStore) DeleteReview(id string) error {
	res := s.db.Delete(&ReviewModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) ListReviewsByBook(bookID string) ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Where("book_id = ?", bookID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(models))
	for _, m := range models {
		reviews = append(reviews, reviewFromModel(m))
	}
	return reviews, nil
}

// orders

func (s *GormStore) CreateOrder(o domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	model := OrderModel{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     items,
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
	return s.db.Create(&model).Error
}

// webhooks

func (s *GormStore) CreateEndpoint(e domain.WebhookEndpoint) error {
	model, err := endpointToModel(e)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

func (s *GormStore) UpdateEndpoint(e domain.WebhookEndpoint) error {
	events, err := json.Marshal(e.Events)
	if err != nil {
		return fmt.Errorf("marshal endpoint events: %w", err)
	}
	res := s.db.Model(&WebhookEndpointModel{}).Where("id = ?", e.ID).Updates(map[string]any{
		"url":        e.URL,
		"events":     datatypes.JSON(events),
		"active":     e.Active,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) GetEndpoint(id string) (domain.WebhookEndpoint, bool, error) {
	var model WebhookEndpointModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.WebhookEndpoint{}, false, nil
		}
		return domain.WebhookEndpoint{}, false, err
	}
	return endpointFromModel(model), true, nil
}

func (s *GormStore) ListEndpoints() ([]domain.WebhookEndpoint, error) {
	var models []WebhookEndpointModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	endpoints := make([]domain.WebhookEndpoint, 0, len(models))
	for _, m := range models {
		endpoints = append(endpoints, endpointFromModel(m))
	}
	return endpoints, nil
}

// ListActiveEndpoints selects active endpoints whose subscribed-event set
// contains the exact event type, using JSONB containment.
func (s *GormStore) ListActiveEndpoints(eventType string) ([]domain.WebhookEndpoint, error) {
	needle, err := json.Marshal([]string{eventType})
	if err != nil {
		return nil, err
	}
	var models []WebhookEndpointModel
	if err := s.db.
		Where("active AND events @> ?", datatypes.JSON(needle)).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	endpoints := make([]domain.WebhookEndpoint, 0, len(models))
	for _, m := range models {
		endpoints = append(endpoints, endpointFromModel(m))
	}
	return endpoints, nil
}

func (s *GormStore) CreateDelivery(d domain.WebhookDelivery) error {
	model := deliveryToModel(d)
	return s.db.Create(&model).Error
}

// FinalizeDelivery records the outcome of the single delivery attempt.
func (s *GormStore) FinalizeDelivery(id string, status domain.DeliveryStatus, responseStatus *int) error {
	res := s.db.Model(&WebhookDeliveryModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":          string(status),
		"response_status": responseStatus,
		"updated_at":      time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *GormStore) ListDeliveriesByEndpoint(endpointID string) ([]domain.WebhookDelivery, error) {
	var models []WebhookDeliveryModel
	if err := s.db.Where("endpoint_id = ?", endpointID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	deliveries := make([]domain.WebhookDelivery, 0, len(models))
	for _, m := range models {
		deliveries = append(deliveries, deliveryFromModel(m))
	}
	return deliveries, nil
}

// converters

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	var publisherID *string
	if strings.TrimSpace(b.PublisherID) != "" {
		value := strings.TrimSpace(b.PublisherID)
		publisherID = &value
	}
	return BookModel{
		ID:              b.ID,
		Title:           b.Title,
		Subtitle:        b.Subtitle,
		Description:     b.Description,
		ISBN:            b.ISBN,
		Price:           b.Price,
		Status:          string(b.Status),
		PublicationDate: b.PublicationDate,
		AuthorID:        b.AuthorID,
		PublisherID:     publisherID,
		CoverKey:        b.CoverKey,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func bookFromRow(row bookRow) domain.Book {
	publisherID := ""
	if row.PublisherID != nil {
		publisherID = *row.PublisherID
	}
	return domain.Book{
		ID:              row.ID,
		Title:           row.Title,
		Subtitle:        row.Subtitle,
		Description:     row.Description,
		ISBN:            row.ISBN,
		Price:           row.Price,
		Status:          domain.BookStatus(row.Status),
		PublicationDate: row.PublicationDate,
		AuthorID:        row.AuthorID,
		PublisherID:     publisherID,
		CoverKey:        row.CoverKey,
		ReviewsCount:    row.ReviewsCount,
		AverageRating:   row.AverageRating,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func authorToModel(a domain.Author) AuthorModel {
	return AuthorModel{
		ID:        a.ID,
		Name:      a.Name,
		Bio:       a.Bio,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func authorFromRow(row authorRow) domain.Author {
	return domain.Author{
		ID:         row.ID,
		Name:       row.Name,
		Bio:        row.Bio,
		BooksCount: row.BooksCount,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func categoryToModel(c domain.Category) CategoryModel {
	return CategoryModel{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func categoryFromRow(row categoryRow) domain.Category {
	return domain.Category{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		BooksCount:  row.BooksCount,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func publisherToModel(p domain.Publisher) PublisherModel {
	return PublisherModel{
		ID:        p.ID,
		Name:      p.Name,
		Website:   p.Website,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func publisherFromRow(row publisherRow) domain.Publisher {
	return domain.Publisher{
		ID:         row.ID,
		Name:       row.Name,
		Website:    row.Website,
		BooksCount: row.BooksCount,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func reviewToModel(r domain.Review) ReviewModel {
	return ReviewModel{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Title:     r.Title,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{
		ID:        m.ID,
		BookID:    m.BookID,
		UserID:    m.UserID,
		Rating:    m.Rating,
		Title:     m.Title,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func endpointToModel(e domain.WebhookEndpoint) (WebhookEndpointModel, error) {
	events, err := json.Marshal(e.Events)
	if err != nil {
		return WebhookEndpointModel{}, fmt.Errorf("marshal endpoint events: %w", err)
	}
	return WebhookEndpointModel{
		ID:        e.ID,
		URL:       e.URL,
		Secret:    e.Secret,
		Events:    events,
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}, nil
}

func endpointFromModel(m WebhookEndpointModel) domain.WebhookEndpoint {
	var events []string
	if len(m.Events) > 0 {
		_ = json.Unmarshal(m.Events, &events)
	}
	return domain.WebhookEndpoint{
		ID:        m.ID,
		URL:       m.URL,
		Secret:    m.Secret,
		Events:    events,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func deliveryToModel(d domain.WebhookDelivery) WebhookDeliveryModel {
	return WebhookDeliveryModel{
		ID:             d.ID,
		EndpointID:     d.EndpointID,
		EventType:      d.EventType,
		Payload:        datatypes.JSON(d.Payload),
		Status:         string(d.Status),
		ResponseStatus: d.ResponseStatus,
		Attempts:       d.Attempts,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func deliveryFromModel(m WebhookDeliveryModel) domain.WebhookDelivery {
	return domain.WebhookDelivery{
		ID:             m.ID,
		EndpointID:     m.EndpointID,
		EventType:      m.EventType,
		Payload:        []byte(m.Payload),
		Status:         domain.DeliveryStatus(m.Status),
		ResponseStatus: m.ResponseStatus,
		Attempts:       m.Attempts,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
