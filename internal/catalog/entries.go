package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"flowcatalog/internal/flow"
)

// Entry is one catalogued workflow.
type Entry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Tag         string    `json:"tag,omitempty"`
	Description string    `json:"description,omitempty"`
	Categories  []string  `json:"categories"`
	NodeCount   int       `json:"node_count"`
	NodeTypes   []string  `json:"node_types"`
	Triggers    []string  `json:"triggers"`
	Complexity  string    `json:"complexity"`
	FilePath    string    `json:"file_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const entryColumns = "id, name, tag, description, categories, node_count, node_types, triggers, complexity, file_path, created_at, updated_at"

// Upsert inserts or updates the entry for an analysis and returns its id. The
// tag argument replaces the analysis tag when set; an empty tag keeps the tag
// already stored.
func (s *Store) Upsert(ctx context.Context, analysis *flow.Analysis, tag string) (string, error) {
	if analysis == nil {
		return "", errors.New("catalog upsert: analysis required")
	}
	id := strings.TrimSpace(analysis.ID)
	if id == "" {
		return "", errors.New("catalog upsert: analysis id required")
	}
	name := strings.TrimSpace(analysis.Name)
	if name == "" {
		return "", errors.New("catalog upsert: analysis name required")
	}
	if tag == "" {
		tag = analysis.Tag
	}
	categories, err := encodeList(analysis.Categories)
	if err != nil {
		return "", fmt.Errorf("catalog upsert: encode categories: %w", err)
	}
	nodeTypes, err := encodeList(analysis.NodeTypes)
	if err != nil {
		return "", fmt.Errorf("catalog upsert: encode node types: %w", err)
	}
	triggers, err := encodeList(analysis.Triggers)
	if err != nil {
		return "", fmt.Errorf("catalog upsert: encode triggers: %w", err)
	}

	now := s.timestamp()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (`+entryColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             name = excluded.name,
             tag = CASE WHEN excluded.tag = '' THEN workflows.tag ELSE excluded.tag END,
             description = excluded.description,
             categories = excluded.categories,
             node_count = excluded.node_count,
             node_types = excluded.node_types,
             triggers = excluded.triggers,
             complexity = excluded.complexity,
             file_path = excluded.file_path,
             updated_at = excluded.updated_at`,
		id, name, tag, analysis.Description, categories, analysis.NodeCount, nodeTypes, triggers,
		analysis.Complexity, analysis.FilePath, now, now,
	); err != nil {
		return "", fmt.Errorf("catalog upsert %s: %w", id, err)
	}
	return id, nil
}

// Get fetches an entry by id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM workflows WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// ExistsByID reports whether an entry with the given id exists.
func (s *Store) ExistsByID(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM workflows WHERE id = ? LIMIT 1`, id)
}

// ExistsByName reports whether any entry carries the given name.
func (s *Store) ExistsByName(ctx context.Context, name string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM workflows WHERE name = ? LIMIT 1`, name)
}

func (s *Store) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog lookup: %w", err)
	}
	return true, nil
}

// ListOptions filters List.
type ListOptions struct {
	Tag   string
	Name  string
	Limit int
}

// List returns entries ordered by name then id.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM workflows`
	var (
		where []string
		args  []any
	)
	if opts.Tag != "" {
		where = append(where, "tag = ?")
		args = append(args, opts.Tag)
	}
	if opts.Name != "" {
		where = append(where, "name = ?")
		args = append(args, opts.Name)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name, id`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workflows`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry                          Entry
		categories, nodeTypes, trigger string
		createdRaw, updatedRaw         string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.Name,
		&entry.Tag,
		&entry.Description,
		&categories,
		&entry.NodeCount,
		&nodeTypes,
		&trigger,
		&entry.Complexity,
		&entry.FilePath,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entry.Categories = decodeList(categories)
	entry.NodeTypes = decodeList(nodeTypes)
	entry.Triggers = decodeList(trigger)
	entry.CreatedAt, _ = time.Parse(timeLayout, createdRaw)
	entry.UpdatedAt, _ = time.Parse(timeLayout, updatedRaw)
	return &entry, nil
}

func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeList tolerates malformed rows by returning nil.
func decodeList(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}
