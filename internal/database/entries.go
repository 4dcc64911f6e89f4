package database

import (
	"context"
	"fmt"

	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
)

// TimeEntryRepository reads a user's stored time entries
type TimeEntryRepository struct {
	db *DB
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// ListStoredEntries returns every stored entry of the user in the shape duplicate detection compares
func (r *TimeEntryRepository) ListStoredEntries(ctx context.Context, userID uuid.UUID) ([]models.StoredEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(entry_date, 'YYYY-MM-DD'), start_time, end_time, description, category_id
		FROM time_entries
		WHERE user_id = $1
		ORDER BY entry_date, start_time
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []models.StoredEntry
	for rows.Next() {
		var e models.StoredEntry
		var categoryID uuid.NullUUID
		if err := rows.Scan(&e.Date, &e.StartTime, &e.EndTime, &e.Description, &categoryID); err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		if categoryID.Valid {
			id := categoryID.UUID
			e.CategoryID = &id
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time entries: %w", err)
	}
	return entries, nil
}

// CategoryRepository reads a user's categories
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListNames returns the user's category names in alphabetical order
func (r *CategoryRepository) ListNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM categories WHERE user_id = $1 ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return names, nil
}

// EntryStore combines the entry and category repositories into the pipeline's storage collaborator
type EntryStore struct {
	entries    *TimeEntryRepository
	categories *CategoryRepository
}

// NewEntryStore creates an entry store backed by db
func NewEntryStore(db *DB) *EntryStore {
	return &EntryStore{
		entries:    NewTimeEntryRepository(db),
		categories: NewCategoryRepository(db),
	}
}

// ListStoredEntries returns the user's stored entries
func (s *EntryStore) ListStoredEntries(ctx context.Context, userID uuid.UUID) ([]models.StoredEntry, error) {
	return s.entries.ListStoredEntries(ctx, userID)
}

// ListCategoryNames returns the user's category names
func (s *EntryStore) ListCategoryNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.categories.ListNames(ctx, userID)
}
