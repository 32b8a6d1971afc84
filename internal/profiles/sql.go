package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var profileColumns = []string{
	"user_id", "full_name", "sex", "look_type", "age_range",
	"height_cm", "weight_kg", "body_type", "hair", "cities", "languages",
}

// SQLStore reads the registration bot's users table from SQLite or Postgres.
type SQLStore struct {
	db    *sql.DB
	query string
	args  []any
}

func OpenSQL(driver, dsn, table string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("profiles: dsn is required")
	}
	name := "sqlite"
	var ph sq.PlaceholderFormat = sq.Question
	if strings.HasPrefix(driver, "postgres") {
		name, ph = "postgres", sq.Dollar
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	query, args, err := selectProfiles(ph, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, query: query, args: args}, nil
}

// selectProfiles skips half-finished registrations (no sex recorded yet).
func selectProfiles(ph sq.PlaceholderFormat, table string) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		table = "users"
	}
	return sq.StatementBuilder.PlaceholderFormat(ph).
		Select(profileColumns...).
		From(table).
		Where(sq.And{sq.NotEq{"sex": nil}, sq.NotEq{"sex": ""}}).
		OrderBy("user_id").
		ToSql()
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Profiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, s.query, s.args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var (
			p                                          Profile
			name, sex, look, age, body, hair, city, lg sql.NullString
			height, weight                             sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &name, &sex, &look, &age, &height, &weight, &body, &hair, &city, &lg); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Name, p.Sex, p.LookType, p.AgeRange = name.String, sex.String, look.String, age.String
		p.HeightCM, p.WeightKG = int(height.Int64), int(weight.Int64)
		p.BodyType, p.Hair, p.Cities, p.Languages = body.String, hair.String, city.String, lg.String
		out = append(out, p)
	}
	return out, rows.Err()
}
