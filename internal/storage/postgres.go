package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/org/memberauth/pkg/models"
)

// PostgresBackend is a Backend backed by PostgreSQL.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend opens a pgxpool connection and returns a ready backend.
func NewPostgresBackend(ctx context.Context, connStr string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresBackend) Close() {
	p.pool.Close()
}

// identityTable maps a role to its table. Only the two fixed names are ever
// interpolated into SQL.
func identityTable(role models.Role) (string, error) {
	switch role {
	case models.RoleTrainee:
		return "trainees", nil
	case models.RoleTrainer:
		return "trainers", nil
	default:
		return "", fmt.Errorf("unknown role %d", role)
	}
}

// --- Identities ---

func (p *PostgresBackend) FindByUsername(ctx context.Context, role models.Role, username string) (*models.Identity, error) {
	table, err := identityTable(role)
	if err != nil {
		return nil, err
	}
	row := p.pool.QueryRow(ctx,
		`SELECT id, username, password, is_active FROM `+table+` WHERE username = $1`,
		username,
	)
	return scanIdentity(row, role)
}

func (p *PostgresBackend) FindByID(ctx context.Context, role models.Role, id int64) (*models.Identity, error) {
	table, err := identityTable(role)
	if err != nil {
		return nil, err
	}
	row := p.pool.QueryRow(ctx,
		`SELECT id, username, password, is_active FROM `+table+` WHERE id = $1`,
		id,
	)
	return scanIdentity(row, role)
}

func scanIdentity(row pgx.Row, role models.Role) (*models.Identity, error) {
	var id models.Identity
	if err := row.Scan(&id.ID, &id.Username, &id.PasswordHash, &id.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	id.Role = role
	return &id, nil
}

func (p *PostgresBackend) UpdatePasswordHash(ctx context.Context, role models.Role, id int64, hash string) error {
	table, err := identityTable(role)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE `+table+` SET password = $1 WHERE id = $2`,
		hash, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Auth events ---

func (p *PostgresBackend) WriteAuthEvent(ctx context.Context, e *models.AuthEvent) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO auth_events (id, timestamp, transaction_id, username, action, outcome, client_ip)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Timestamp, e.TransactionID, e.Username, e.Action, e.Outcome, e.ClientIP,
	)
	return err
}

func (p *PostgresBackend) QueryAuthEvents(ctx context.Context, filter EventFilter) ([]*models.AuthEvent, error) {
	query, args := authEventsQuery(filter)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.AuthEvent
	for rows.Next() {
		var e models.AuthEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.TransactionID, &e.Username,
			&e.Action, &e.Outcome, &e.ClientIP); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// authEventsQuery builds the filtered event query. Usernames match exactly.
func authEventsQuery(filter EventFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, timestamp, transaction_id, username, action, outcome, client_ip FROM auth_events WHERE 1=1`)
	args := []any{}
	n := 1
	if filter.Username != "" {
		fmt.Fprintf(&query, ` AND username = $%d`, n)
		args = append(args, filter.Username)
		n++
	}
	if filter.Since != nil {
		fmt.Fprintf(&query, ` AND timestamp >= $%d`, n)
		args = append(args, *filter.Since)
		n++
	}
	query.WriteString(` ORDER BY timestamp DESC`)
	if filter.Limit > 0 {
		fmt.Fprintf(&query, ` LIMIT $%d`, n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&query, ` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}
	return query.String(), args
}
