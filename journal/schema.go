package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	strategy TEXT NOT NULL,
	direction TEXT NOT NULL,
	units REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	daily_pnl REAL NOT NULL,
	open_positions INTEGER NOT NULL,
	total_trades INTEGER NOT NULL,
	win_rate REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	time DATETIME NOT NULL,
	kind TEXT NOT NULL,
	instrument TEXT,
	strategy TEXT,
	code TEXT,
	detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
CREATE INDEX IF NOT EXISTS idx_events_time ON events(time);
CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
`
