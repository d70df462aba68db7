package store

// dialect holds the statements that differ between drivers. Queries shared
// by both use '?' placeholders, which sqlite and mysql both accept.
type dialect struct {
	name         string
	schema       []string
	insertFamily string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS families (
			name TEXT PRIMARY KEY,
			lights BOOLEAN NOT NULL DEFAULT 0,
			temperature REAL NOT NULL DEFAULT 24.0,
			humidity REAL NOT NULL DEFAULT 45.0,
			mode TEXT NOT NULL DEFAULT 'Home',
			updated_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			quantity REAL NOT NULL DEFAULT 1.0,
			unit TEXT NOT NULL DEFAULT 'pcs',
			location TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'Grocery',
			family_name TEXT NOT NULL REFERENCES families(name) ON DELETE CASCADE,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_family ON items(family_name)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			family_name TEXT NOT NULL REFERENCES families(name) ON DELETE CASCADE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_family ON notes(family_name, created_at)`,
	},
	insertFamily: `INSERT INTO families (name, lights, temperature, humidity, mode, updated_at)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`,
}

// Family names compare byte-wise in MySQL too, matching sqlite.
var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS families (
			name VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin PRIMARY KEY,
			lights BOOLEAN NOT NULL DEFAULT FALSE,
			temperature DOUBLE NOT NULL DEFAULT 24.0,
			humidity DOUBLE NOT NULL DEFAULT 45.0,
			mode VARCHAR(16) NOT NULL DEFAULT 'Home',
			updated_at BIGINT NOT NULL DEFAULT 0
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS items (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			quantity DOUBLE NOT NULL DEFAULT 1.0,
			unit VARCHAR(32) NOT NULL DEFAULT 'pcs',
			location VARCHAR(255) NOT NULL DEFAULT '',
			category VARCHAR(64) NOT NULL DEFAULT 'Grocery',
			family_name VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			INDEX idx_items_family (family_name),
			CONSTRAINT fk_items_family FOREIGN KEY (family_name) REFERENCES families(name) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS notes (
			id CHAR(36) PRIMARY KEY,
			content TEXT NOT NULL,
			family_name VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			created_at BIGINT NOT NULL,
			INDEX idx_notes_family (family_name, created_at),
			CONSTRAINT fk_notes_family FOREIGN KEY (family_name) REFERENCES families(name) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	insertFamily: `INSERT IGNORE INTO families (name, lights, temperature, humidity, mode, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
}
