package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// IDsByTag returns the ids of entries carrying tag.
func (s *Store) IDsByTag(ctx context.Context, tag string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT id FROM workflows WHERE tag = ? ORDER BY id`, tag)
}

// DeleteByTag removes every entry carrying tag and returns how many were removed.
func (s *Store) DeleteByTag(ctx context.Context, tag string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE tag = ?`, tag)
	if err != nil {
		return 0, fmt.Errorf("delete by tag: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// nonRepresentativeQuery selects, for each name, every entry except the one with
// the smallest id.
const nonRepresentativeQuery = `SELECT id FROM workflows w
    WHERE id <> (SELECT MIN(id) FROM workflows WHERE name = w.name)
    ORDER BY name, id`

// NonRepresentativeIDs returns the ids that DeleteNonRepresentativeByName
// would remove.
func (s *Store) NonRepresentativeIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, nonRepresentativeQuery)
}

// DeleteNonRepresentativeByName keeps one entry per name, the one with the
// smallest id, deletes the rest, and returns how many were removed.
func (s *Store) DeleteNonRepresentativeByName(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workflows WHERE id IN (`+nonRepresentativeQuery+`)`)
	if err != nil {
		return 0, fmt.Errorf("delete duplicates: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// Rename changes an entry's name.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE workflows SET name = ?, updated_at = ? WHERE id = ?`, name, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("rename entry: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type nameRow struct {
	id        string
	name      string
	updatedAt string
}

// RenameDuplicateNames leaves the earliest-updated entry of each shared name
// unchanged and appends " (n)" to the others in update-time order, skipping
// suffixes that are already taken. It returns how many entries were renamed.
// Renaming keeps updated_at so the order is stable across runs.
func (s *Store) RenameDuplicateNames(ctx context.Context) (int, error) {
	renamed := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name, updated_at FROM workflows ORDER BY name, updated_at, id`)
		if err != nil {
			return fmt.Errorf("load names: %w", err)
		}
		var all []nameRow
		for rows.Next() {
			var row nameRow
			if err := rows.Scan(&row.id, &row.name, &row.updatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan names: %w", err)
			}
			all = append(all, row)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate names: %w", err)
		}

		taken := make(map[string]struct{}, len(all))
		groups := make(map[string][]nameRow)
		var order []string
		for _, row := range all {
			taken[row.name] = struct{}{}
			if _, ok := groups[row.name]; !ok {
				order = append(order, row.name)
			}
			groups[row.name] = append(groups[row.name], row)
		}
		sort.Strings(order)

		for _, name := range order {
			group := groups[name]
			if len(group) < 2 {
				continue
			}
			n := 1
			for _, row := range group[1:] {
				candidate := fmt.Sprintf("%s (%d)", name, n)
				for {
					if _, exists := taken[candidate]; !exists {
						break
					}
					n++
					candidate = fmt.Sprintf("%s (%d)", name, n)
				}
				n++
				if _, err := tx.ExecContext(ctx, `UPDATE workflows SET name = ? WHERE id = ?`, candidate, row.id); err != nil {
					return fmt.Errorf("rename %s: %w", row.id, err)
				}
				taken[candidate] = struct{}{}
				renamed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return renamed, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
