// Copyright 2024 The Corda Network Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite implements the node descriptor cache on SQLite.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/pkg/private/serrors"
	"github.com/andrea-athirat/corda/private/netmap/nodedb"
)

// SchemaVersion is the version of the database schema. Opening a database
// with a different stored version fails.
const SchemaVersion = 1

// Schema is the SQL statement creating the database schema.
const Schema = `
CREATE TABLE NodeInfos (
	Hash TEXT PRIMARY KEY,
	LegalIdentity TEXT NOT NULL,
	Serial INTEGER NOT NULL,
	Raw BLOB NOT NULL
);
CREATE INDEX NodeInfosByIdentity ON NodeInfos (LegalIdentity);
`

var _ nodedb.DB = (*Backend)(nil)

// Backend implements the node descriptor cache on a SQLite database.
type Backend struct {
	mu sync.RWMutex
	db *sql.DB
}

// New opens the database at the given path, creating it with the current
// schema if it does not exist.
func New(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, serrors.Wrap("opening database", err, "path", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, serrors.Wrap("accessing database", err, "path", path)
	}
	// The sqlite driver is not safe for concurrent writes on one connection.
	db.SetMaxOpenConns(1)
	if err := setup(db); err != nil {
		db.Close()
		return nil, serrors.Wrap("initializing database", err, "path", path)
	}
	return &Backend{db: db}, nil
}

func setup(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return serrors.Wrap("reading schema version", err)
	}
	switch version {
	case 0:
		if _, err := db.Exec(Schema); err != nil {
			return serrors.Wrap("creating schema", err)
		}
		if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
			return serrors.Wrap("writing schema version", err)
		}
		return nil
	case SchemaVersion:
		return nil
	default:
		return serrors.New("unsupported schema version",
			"expected", SchemaVersion, "actual", version)
	}
}

// NodeByLegalIdentity returns the descriptor of the given legal identity.
func (b *Backend) NodeByLegalIdentity(name string) (netmap.NodeInfo, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	query := `SELECT Raw FROM NodeInfos WHERE LegalIdentity = ?`
	return b.queryOne(query, name)
}

// NodeByHash returns the descriptor with the given content hash.
func (b *Backend) NodeByHash(hash netmap.Hash) (netmap.NodeInfo, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	query := `SELECT Raw FROM NodeInfos WHERE Hash = ?`
	return b.queryOne(query, hash.String())
}

func (b *Backend) queryOne(query string, arg interface{}) (netmap.NodeInfo, bool, error) {
	var raw []byte
	err := b.db.QueryRow(query, arg).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		return netmap.NodeInfo{}, false, nil
	case err != nil:
		return netmap.NodeInfo{}, false, serrors.Wrap("selecting node info", err)
	}
	var info netmap.NodeInfo
	if err := decode(raw, &info); err != nil {
		return netmap.NodeInfo{}, false, err
	}
	return info, true, nil
}

// AddNode inserts the descriptor, replacing any previous descriptor of the
// same legal identity.
func (b *Backend) AddNode(info netmap.NodeInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, err := info.Encode()
	if err != nil {
		return serrors.Wrap("encoding node info", err)
	}
	hash := netmap.HashBytes(raw)

	tx, err := b.db.Begin()
	if err != nil {
		return serrors.Wrap("starting transaction", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM NodeInfos WHERE LegalIdentity = ?`,
		info.LegalIdentity()); err != nil {
		return serrors.Wrap("deleting stale node info", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO NodeInfos (Hash, LegalIdentity, Serial, Raw) VALUES (?, ?, ?, ?)`,
		hash.String(), info.LegalIdentity(), info.Serial, raw); err != nil {
		return serrors.Wrap("inserting node info", err)
	}
	return tx.Commit()
}

// RemoveNode deletes the descriptor. Removing an absent descriptor is a
// no-op.
func (b *Backend) RemoveNode(info netmap.NodeInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	hash, err := info.Hash()
	if err != nil {
		return serrors.Wrap("hashing node info", err)
	}
	if _, err := b.db.Exec(`DELETE FROM NodeInfos WHERE Hash = ?`, hash.String()); err != nil {
		return serrors.Wrap("deleting node info", err)
	}
	return nil
}

// AllHashes lists the content hashes of all cached descriptors.
func (b *Backend) AllHashes() ([]netmap.Hash, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rows, err := b.db.Query(`SELECT Hash FROM NodeInfos`)
	if err != nil {
		return nil, serrors.Wrap("selecting node info hashes", err)
	}
	defer rows.Close()
	var hashes []netmap.Hash
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, serrors.Wrap("scanning node info hash", err)
		}
		hash, err := netmap.ParseHash(s)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, serrors.Wrap("iterating node info hashes", err)
	}
	return hashes, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func decode(raw []byte, info *netmap.NodeInfo) error {
	if err := json.Unmarshal(raw, info); err != nil {
		return serrors.Wrap("decoding node info", err)
	}
	return nil
}
