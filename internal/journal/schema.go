package journal

// Schema is applied on every open. Money and quantities are stored as decimal
// strings; times as RFC 3339 text in UTC.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	trading_days INTEGER NOT NULL,
	initial_capital TEXT NOT NULL,
	final_value TEXT NOT NULL,
	total_return TEXT NOT NULL,
	max_drawdown TEXT NOT NULL,
	sharpe_ratio TEXT NOT NULL,
	trade_count INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	time TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	commission TEXT NOT NULL,
	cash_delta TEXT NOT NULL,
	realized_pnl TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	session_id TEXT NOT NULL,
	date TEXT NOT NULL,
	value TEXT NOT NULL,
	cash TEXT NOT NULL,
	daily_return TEXT NOT NULL,
	drawdown TEXT NOT NULL,
	trade_count INTEGER NOT NULL,
	PRIMARY KEY (session_id, date)
);

CREATE TABLE IF NOT EXISTS alerts (
	alert_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	severity TEXT NOT NULL,
	metric TEXT NOT NULL,
	value TEXT NOT NULL,
	threshold TEXT NOT NULL,
	message TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id);
CREATE INDEX IF NOT EXISTS idx_alerts_session ON alerts(session_id);
`
