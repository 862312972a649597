package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// Store keeps the blocks fetched from a node so the block list and the
// homepage stats can be served from a consistent snapshot.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	conf types.DBConfig
}

func NewStore(conf types.DBConfig) (*Store, error) {
	switch conf.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}

	db, err := sql.Open(conf.Driver, conf.DSN)
	if err != nil {
		return nil, err
	}
	if conf.Driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	store := &Store{
		db:   db,
		conf: conf,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	var schema []string
	switch s.conf.Driver {
	case DriverMySQL:
		schema = []string{`
			CREATE TABLE IF NOT EXISTS blocks (
				hash VARCHAR(66) PRIMARY KEY,
				number BIGINT UNSIGNED NOT NULL,
				type VARCHAR(16) NOT NULL DEFAULT 'block',
				miner VARCHAR(42) NOT NULL,
				miner_name VARCHAR(100),
				size BIGINT UNSIGNED DEFAULT 0,
				tx_count INT DEFAULT 0,
				gas_used VARCHAR(80),
				gas_limit VARCHAR(80),
				gas_target_percentage DOUBLE,
				base_fee_per_gas VARCHAR(80),
				timestamp BIGINT NOT NULL,
				INDEX idx_number (number),
				INDEX idx_type_number (type, number)
			)`}
	case DriverPostgres:
		schema = []string{`
			CREATE TABLE IF NOT EXISTS blocks (
				hash VARCHAR(66) PRIMARY KEY,
				number BIGINT NOT NULL,
				type VARCHAR(16) NOT NULL DEFAULT 'block',
				miner VARCHAR(42) NOT NULL,
				miner_name VARCHAR(100),
				size BIGINT DEFAULT 0,
				tx_count INTEGER DEFAULT 0,
				gas_used NUMERIC(78,0),
				gas_limit NUMERIC(78,0),
				gas_target_percentage DOUBLE PRECISION,
				base_fee_per_gas NUMERIC(78,0),
				timestamp BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_number ON blocks(number)`,
			`CREATE INDEX IF NOT EXISTS idx_type_number ON blocks(type, number)`,
		}
	default:
		schema = []string{`
			CREATE TABLE IF NOT EXISTS blocks (
				hash TEXT PRIMARY KEY,
				number INTEGER NOT NULL,
				type TEXT NOT NULL DEFAULT 'block',
				miner TEXT NOT NULL,
				miner_name TEXT,
				size INTEGER DEFAULT 0,
				tx_count INTEGER DEFAULT 0,
				gas_used TEXT,
				gas_limit TEXT,
				gas_target_percentage REAL,
				base_fee_per_gas TEXT,
				timestamp INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_number ON blocks(number);
			CREATE INDEX IF NOT EXISTS idx_type_number ON blocks(type, number);`}
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	return nil
}

// rebind rewrites "?" placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if s.conf.Driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) GetLastProcessedBlock() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lastBlock uint64
	err := s.db.QueryRow("SELECT COALESCE(MAX(number), 0) FROM blocks").Scan(&lastBlock)
	if err != nil {
		return 0, err
	}

	return lastBlock, nil
}

func (s *Store) StoreBlock(b types.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	columns := `(hash, number, type, miner, miner_name, size, tx_count, gas_used, gas_limit,
		gas_target_percentage, base_fee_per_gas, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var query string
	switch s.conf.Driver {
	case DriverMySQL:
		query = `INSERT INTO blocks ` + columns + ` ON DUPLICATE KEY UPDATE
			number=VALUES(number),
			type=VALUES(type),
			miner=VALUES(miner),
			miner_name=VALUES(miner_name),
			size=VALUES(size),
			tx_count=VALUES(tx_count),
			gas_used=VALUES(gas_used),
			gas_limit=VALUES(gas_limit),
			gas_target_percentage=VALUES(gas_target_percentage),
			base_fee_per_gas=VALUES(base_fee_per_gas),
			timestamp=VALUES(timestamp)`
	case DriverPostgres:
		query = `INSERT INTO blocks ` + columns + ` ON CONFLICT (hash) DO UPDATE SET
			number=EXCLUDED.number,
			type=EXCLUDED.type,
			miner=EXCLUDED.miner,
			miner_name=EXCLUDED.miner_name,
			size=EXCLUDED.size,
			tx_count=EXCLUDED.tx_count,
			gas_used=EXCLUDED.gas_used,
			gas_limit=EXCLUDED.gas_limit,
			gas_target_percentage=EXCLUDED.gas_target_percentage,
			base_fee_per_gas=EXCLUDED.base_fee_per_gas,
			timestamp=EXCLUDED.timestamp`
	default:
		query = `INSERT OR REPLACE INTO blocks ` + columns
	}

	typ := b.Type
	if typ == "" {
		typ = types.BlockTypeBlock
	}

	_, err := s.db.Exec(s.rebind(query),
		strings.ToLower(b.Hash),
		b.Height,
		string(typ),
		b.Miner.Hash,
		nullString(b.Miner.Name),
		b.Size,
		b.TxCount,
		bigString(b.GasUsed),
		bigString(b.GasLimit),
		nullFloat(b.GasTargetPercentage),
		bigString(b.BaseFeePerGas),
		b.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store block %d: %w", b.Height, err)
	}
	return nil
}

// MarkReorg flags a block that lost its height to another one.
func (s *Store) MarkReorg(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(s.rebind("UPDATE blocks SET type = ? WHERE hash = ?"),
		string(types.BlockTypeReorg), strings.ToLower(hash))
	if err != nil {
		return fmt.Errorf("failed to mark reorg %s: %w", hash, err)
	}
	return nil
}

// CanonicalHash returns the hash stored as canonical at height.
func (s *Store) CanonicalHash(height uint64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	err := s.db.QueryRow(s.rebind("SELECT hash FROM blocks WHERE number = ? AND type = ? LIMIT 1"),
		height, string(types.BlockTypeBlock)).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read canonical hash at %d: %w", height, err)
	}
	return hash, true, nil
}

// RecentBlocks returns up to limit blocks of the given type, newest first.
func (s *Store) RecentBlocks(typ types.BlockType, limit int) ([]types.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(s.rebind(`
		SELECT hash, number, type, miner, miner_name, size, tx_count, gas_used, gas_limit,
			gas_target_percentage, base_fee_per_gas, timestamp
		FROM blocks
		WHERE type = ?
		ORDER BY number DESC
		LIMIT ?`), string(typ), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []types.Block
	for rows.Next() {
		var (
			b                          types.Block
			blockType                  string
			minerName                  sql.NullString
			gasUsed, gasLimit, baseFee sql.NullString
			targetPct                  sql.NullFloat64
			ts                         int64
		)
		if err := rows.Scan(&b.Hash, &b.Height, &blockType, &b.Miner.Hash, &minerName, &b.Size,
			&b.TxCount, &gasUsed, &gasLimit, &targetPct, &baseFee, &ts); err != nil {
			return nil, err
		}

		b.Type = types.BlockType(blockType)
		b.Miner.Name = minerName.String
		b.Timestamp = time.Unix(ts, 0).UTC()
		if b.GasUsed, err = parseBig(gasUsed); err != nil {
			return nil, err
		}
		if b.GasLimit, err = parseBig(gasLimit); err != nil {
			return nil, err
		}
		if b.BaseFeePerGas, err = parseBig(baseFee); err != nil {
			return nil, err
		}
		if targetPct.Valid {
			v := targetPct.Float64
			b.GasTargetPercentage = &v
		}
		blocks = append(blocks, b)
	}

	return blocks, rows.Err()
}

// AverageBlockTime returns the mean interval in milliseconds across the
// newest window canonical blocks, or nil when fewer than two are stored.
func (s *Store) AverageBlockTime(window int) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(s.rebind(`
		SELECT timestamp FROM blocks
		WHERE type = ?
		ORDER BY number DESC
		LIMIT ?`), string(types.BlockTypeBlock), window)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stamps []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		stamps = append(stamps, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(stamps) < 2 {
		return nil, nil
	}

	span := stamps[0] - stamps[len(stamps)-1]
	avg := float64(span) * 1000 / float64(len(stamps)-1)
	return &avg, nil
}

func bigString(v *big.Int) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func parseBig(v sql.NullString) (*big.Int, error) {
	if !v.Valid {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(v.String, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q in store", v.String)
	}
	return n, nil
}
