package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, instrument, strategy, direction, units, entry_price, exit_price,
		 stop_loss, take_profit, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Instrument, t.Strategy, t.Direction, t.Units, t.EntryPrice,
		t.ExitPrice, t.StopLoss, t.TakeProfit, t.OpenTime, t.CloseTime,
		t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, equity, daily_pnl, open_positions, total_trades, win_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time, e.Balance, e.Equity, e.DailyPnL, e.OpenPositions, e.TotalTrades, e.WinRate,
	)
	return err
}

func (j *SQLiteJournal) RecordEvent(e Event) error {
	_, err := j.db.Exec(`
		INSERT INTO events (time, kind, instrument, strategy, code, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time, e.Kind, e.Instrument, e.Strategy, e.Code, e.Detail,
	)
	return err
}

// GetTrade looks up one closed trade by id.
func (j *SQLiteJournal) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`
		SELECT trade_id, instrument, strategy, direction, units, entry_price,
		       exit_price, stop_loss, take_profit, open_time, close_time,
		       realized_pl, reason
		FROM trades WHERE trade_id = ?`, tradeID)

	var t TradeRecord
	err := row.Scan(&t.TradeID, &t.Instrument, &t.Strategy, &t.Direction,
		&t.Units, &t.EntryPrice, &t.ExitPrice, &t.StopLoss, &t.TakeProfit,
		&t.OpenTime, &t.CloseTime, &t.RealizedPL, &t.Reason)
	if err == sql.ErrNoRows {
		return t, fmt.Errorf("trade %q not found", tradeID)
	}
	return t, err
}

// ListTradesByDay returns trades closed within the UTC day starting at day.
func (j *SQLiteJournal) ListTradesByDay(day time.Time) ([]TradeRecord, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	rows, err := j.db.Query(`
		SELECT trade_id, instrument, strategy, direction, units, entry_price,
		       exit_price, stop_loss, take_profit, open_time, close_time,
		       realized_pl, reason
		FROM trades WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.TradeID, &t.Instrument, &t.Strategy, &t.Direction,
			&t.Units, &t.EntryPrice, &t.ExitPrice, &t.StopLoss, &t.TakeProfit,
			&t.OpenTime, &t.CloseTime, &t.RealizedPL, &t.Reason); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEvents returns the most recent events, newest first.
func (j *SQLiteJournal) ListEvents(limit int) ([]Event, error) {
	rows, err := j.db.Query(`
		SELECT time, kind, instrument, strategy, code, detail
		FROM events ORDER BY time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Time, &e.Kind, &e.Instrument, &e.Strategy, &e.Code, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestEquity returns the most recent equity snapshot.
func (j *SQLiteJournal) LatestEquity() (EquitySnapshot, error) {
	row := j.db.QueryRow(`
		SELECT time, balance, equity, daily_pnl, open_positions, total_trades, win_rate
		FROM equity ORDER BY time DESC LIMIT 1`)

	var e EquitySnapshot
	err := row.Scan(&e.Time, &e.Balance, &e.Equity, &e.DailyPnL,
		&e.OpenPositions, &e.TotalTrades, &e.WinRate)
	if err == sql.ErrNoRows {
		return e, fmt.Errorf("no equity snapshots recorded")
	}
	return e, err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
