package journal

const Schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id TEXT PRIMARY KEY,
	retry_of TEXT NOT NULL,
	ok INTEGER NOT NULL,
	code INTEGER NOT NULL,
	instrument TEXT NOT NULL,
	direction TEXT NOT NULL,
	kind TEXT NOT NULL,
	lots REAL NOT NULL,
	price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	label TEXT NOT NULL,
	position TEXT NOT NULL,
	filled_price REAL NOT NULL,
	filled_lots REAL NOT NULL,
	reason TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_time ON outcomes(time);
CREATE INDEX IF NOT EXISTS idx_outcomes_label ON outcomes(label);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	label TEXT NOT NULL,
	direction TEXT NOT NULL,
	overlay TEXT NOT NULL,
	state TEXT NOT NULL,
	active INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	lots REAL NOT NULL,
	grid_levels TEXT NOT NULL,
	plan_levels TEXT NOT NULL DEFAULT '[]',
	plan_hedge REAL NOT NULL DEFAULT 0,
	hedge_armed INTEGER NOT NULL,
	reason TEXT NOT NULL,
	created DATETIME NOT NULL,
	updated DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_active ON runs(active);
`

// migrations bring databases created before a column existed up to Schema.
var migrations = []string{
	`ALTER TABLE runs ADD COLUMN plan_levels TEXT NOT NULL DEFAULT '[]'`,
	`ALTER TABLE runs ADD COLUMN plan_hedge REAL NOT NULL DEFAULT 0`,
}
