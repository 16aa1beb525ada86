package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap"
)

// Postgres implements Store on PostgreSQL via database/sql. The schema lives
// in schema.sql. Balances and amounts are bigint minor units; participants
// are stored as a jsonb array and the external state blob as bytea, never
// parsed.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgres opens and pings a PostgreSQL-backed store.
func NewPostgres(cfg *PostgresConfig) (*Postgres, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Postgres{db: db, logger: cfg.Logger}, nil
}

// NewPostgresFromDB wraps an existing connection. Used by tests with sqlmock.
func NewPostgresFromDB(db *sql.DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// GetAccount fetches an account row.
func (p *Postgres) GetAccount(ctx context.Context, id string) (*types.Account, error) {
	query := `
		SELECT id, display_name, balance, wins, losses, created_at
		FROM accounts WHERE id = $1
	`

	var account types.Account
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.DisplayName, &account.Balance,
		&account.Wins, &account.Losses, &account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	return &account, nil
}

// PutAccount upserts an account row.
func (p *Postgres) PutAccount(ctx context.Context, account *types.Account) error {
	query := `
		INSERT INTO accounts (id, display_name, balance, wins, losses, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			balance = EXCLUDED.balance,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses
	`

	_, err := p.db.ExecContext(ctx, query,
		account.ID, account.DisplayName, account.Balance,
		account.Wins, account.Losses, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// GetDuel fetches a duel row.
func (p *Postgres) GetDuel(ctx context.Context, id string) (*types.Duel, error) {
	query := `
		SELECT id, status, type, participants, start_time, end_time,
			winner_id, market_event, external_state, created_at
		FROM duels WHERE id = $1
	`

	return p.scanDuel(p.db.QueryRowContext(ctx, query, id), id)
}

func (p *Postgres) scanDuel(row *sql.Row, id string) (*types.Duel, error) {
	var duel types.Duel
	var participants []byte
	var endTime sql.NullTime
	var winnerID sql.NullString

	err := row.Scan(
		&duel.ID, &duel.Status, &duel.Type, &participants,
		&duel.StartTime, &endTime, &winnerID, &duel.MarketEvent,
		&duel.ExternalState, &duel.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("duel %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select duel: %w", err)
	}

	err = json.Unmarshal(participants, &duel.Participants)
	if err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	if endTime.Valid {
		duel.EndTime = endTime.Time
	}
	if winnerID.Valid {
		duel.WinnerID = winnerID.String
	}
	return &duel, nil
}

// PutDuel upserts a duel row.
func (p *Postgres) PutDuel(ctx context.Context, duel *types.Duel) error {
	participants, err := json.Marshal(duel.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}

	var endTime sql.NullTime
	if !duel.EndTime.IsZero() {
		endTime = sql.NullTime{Time: duel.EndTime, Valid: true}
	}
	var winnerID sql.NullString
	if duel.WinnerID != "" {
		winnerID = sql.NullString{String: duel.WinnerID, Valid: true}
	}

	query := `
		INSERT INTO duels (id, status, type, participants, start_time, end_time,
			winner_id, market_event, external_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			participants = EXCLUDED.participants,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			winner_id = EXCLUDED.winner_id,
			external_state = EXCLUDED.external_state
	`

	_, err = p.db.ExecContext(ctx, query,
		duel.ID, duel.Status, duel.Type, participants, duel.StartTime,
		endTime, winnerID, duel.MarketEvent, duel.ExternalState, duel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert duel: %w", err)
	}
	return nil
}

// ListDuelsByStatus returns up to limit duels with the given status, newest first.
func (p *Postgres) ListDuelsByStatus(ctx context.Context, status types.DuelStatus, limit int) ([]*types.Duel, error) {
	if limit <= 0 {
		limit = 1000 // unbounded callers still get a sane page
	}
	query := `
		SELECT id, status, type, participants, start_time, end_time,
			winner_id, market_event, external_state, created_at
		FROM duels WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := p.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("select duels: %w", err)
	}
	defer rows.Close()

	var duels []*types.Duel
	for rows.Next() {
		var duel types.Duel
		var participants []byte
		var endTime sql.NullTime
		var winnerID sql.NullString

		err = rows.Scan(
			&duel.ID, &duel.Status, &duel.Type, &participants,
			&duel.StartTime, &endTime, &winnerID, &duel.MarketEvent,
			&duel.ExternalState, &duel.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan duel: %w", err)
		}
		err = json.Unmarshal(participants, &duel.Participants)
		if err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
		if endTime.Valid {
			duel.EndTime = endTime.Time
		}
		if winnerID.Valid {
			duel.WinnerID = winnerID.String
		}
		duels = append(duels, &duel)
	}
	return duels, rows.Err()
}

// InsertBet records a new bet row.
func (p *Postgres) InsertBet(ctx context.Context, bet *types.Bet) error {
	query := `
		INSERT INTO bets (id, duel_id, bettor_account_id, amount, prediction,
			payout, settled, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.db.ExecContext(ctx, query,
		bet.ID, bet.DuelID, bet.BettorAccountID, bet.Amount,
		bet.Prediction, bet.Payout, bet.Settled, bet.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

// PutBet writes the settlement fields of an existing bet.
func (p *Postgres) PutBet(ctx context.Context, bet *types.Bet) error {
	query := `UPDATE bets SET payout = $2, settled = $3 WHERE id = $1`

	res, err := p.db.ExecContext(ctx, query, bet.ID, bet.Payout, bet.Settled)
	if err != nil {
		return fmt.Errorf("update bet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bet: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bet %s: %w", bet.ID, types.ErrNotFound)
	}
	return nil
}

// ListBetsByDuel returns all bets for the duel.
func (p *Postgres) ListBetsByDuel(ctx context.Context, duelID string) ([]*types.Bet, error) {
	query := `
		SELECT id, duel_id, bettor_account_id, amount, prediction, payout, settled, placed_at
		FROM bets WHERE duel_id = $1
		ORDER BY placed_at ASC
	`

	rows, err := p.db.QueryContext(ctx, query, duelID)
	if err != nil {
		return nil, fmt.Errorf("select bets: %w", err)
	}
	defer rows.Close()

	var bets []*types.Bet
	for rows.Next() {
		var bet types.Bet
		err = rows.Scan(
			&bet.ID, &bet.DuelID, &bet.BettorAccountID, &bet.Amount,
			&bet.Prediction, &bet.Payout, &bet.Settled, &bet.PlacedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		bets = append(bets, &bet)
	}
	return bets, rows.Err()
}

// AppendAudit inserts one audit trail row.
func (p *Postgres) AppendAudit(ctx context.Context, entry AuditEntry) error {
	query := `
		INSERT INTO balance_audit (account_id, delta, reason, at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := p.db.ExecContext(ctx, query, entry.AccountID, entry.Delta, entry.Reason, entry.At)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}
