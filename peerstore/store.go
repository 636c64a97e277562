// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peerstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/redgold-io/redgold-core/schema"
)

// DefaultLivenessWindow is how far back a node's last_seen may fall
// before the node is no longer considered active.
const DefaultLivenessWindow = 24 * time.Hour

// nodeSchema and peerSchema use types accepted by both sqlite and
// postgres. Keys are stored hex-encoded so primary key comparisons
// behave identically across drivers; the canonical transaction bytes
// are the source of truth and metadata is re-derived from them on
// read.
const nodeSchema = `
CREATE TABLE IF NOT EXISTS nodes (
	public_key TEXT PRIMARY KEY,
	peer_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	last_seen  BIGINT NOT NULL,
	tx         BYTEA NOT NULL
)`

const peerSchema = `
CREATE TABLE IF NOT EXISTS peers (
	id TEXT PRIMARY KEY,
	tx BYTEA NOT NULL
)`

// statusReady marks a node row as eligible for gossip and partition
// queries. Other statuses are reserved for operator tooling.
const statusReady = "ready"

// GossipPolicy selects which known nodes receive a transaction during
// gossip. Candidates are the currently active nodes.
type GossipPolicy interface {
	SelectPeers(tx *schema.Transaction, candidates []*schema.NodeMetadata) []*schema.PublicKey
}

// allActivePolicy gossips to every active node. It is the default
// policy.
type allActivePolicy struct{}

func (allActivePolicy) SelectPeers(_ *schema.Transaction, candidates []*schema.NodeMetadata) []*schema.PublicKey {
	keys := make([]*schema.PublicKey, 0, len(candidates))
	for _, nm := range candidates {
		if pk, err := nm.PublicKeyOrErr(); err == nil {
			keys = append(keys, pk)
		}
	}
	return keys
}

// Store persists peer and node records in a SQL database. Each
// statement is individually atomic; callers may retry any operation
// since inserts use replace semantics.
type Store struct {
	db       *sql.DB
	liveness time.Duration
	policy   GossipPolicy
	now      func() int64
}

// Option configures a Store.
type Option func(*Store)

// WithLivenessWindow overrides the window used to decide whether a
// node counts as active.
func WithLivenessWindow(d time.Duration) Option {
	return func(s *Store) { s.liveness = d }
}

// WithGossipPolicy overrides the peer-selection policy used by
// SelectGossipPeers.
func WithGossipPolicy(p GossipPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// withClock overrides the wall clock, for tests.
func withClock(now func() int64) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over db. Call Migrate before use.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		liveness: DefaultLivenessWindow,
		policy:   allActivePolicy{},
		now:      func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the backing tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, nodeSchema); err != nil {
		return storeErr("migrate nodes", err)
	}
	if _, err := s.db.ExecContext(ctx, peerSchema); err != nil {
		return storeErr("migrate peers", err)
	}
	return nil
}

// storeErr is the single mapping point for driver and I/O failures so
// callers see a uniform error shape.
func storeErr(op string, err error) error {
	return errors.Wrapf(err, "peerstore: %s", op)
}

// InsertNode validates the node metadata embedded in tx and upserts
// the node row keyed by its public key, replacing any previous record
// for the same key.
func (s *Store) InsertNode(ctx context.Context, tx *schema.Transaction) error {
	nm, err := tx.NodeMetadataPayload()
	if err != nil {
		return err
	}
	pk, err := nm.PublicKeyOrErr()
	if err != nil {
		return err
	}
	if err := pk.Validate(); err != nil {
		return err
	}
	peerHex := ""
	if nm.PeerID != nil {
		peerHex = nm.PeerID.Hex()
	}
	raw, err := tx.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (public_key, peer_id, status, last_seen, tx)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (public_key) DO UPDATE SET
			peer_id = excluded.peer_id,
			status = excluded.status,
			last_seen = excluded.last_seen,
			tx = excluded.tx`,
		pk.Hex(), peerHex, statusReady, s.now(), raw,
	)
	if err != nil {
		return storeErr("insert node", err)
	}
	log.Debugf("Stored node %s under peer %s", pk.Hex(), peerHex)
	return nil
}

// InsertPeer validates the peer metadata embedded in tx and upserts
// the peer row keyed by the peer identity, replacing any previous
// record.
func (s *Store) InsertPeer(ctx context.Context, tx *schema.Transaction) error {
	pm, err := tx.PeerData()
	if err != nil {
		return err
	}
	pid, err := pm.PeerIDOrErr()
	if err != nil {
		return err
	}
	raw, err := tx.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO peers (id, tx)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET tx = excluded.tx`,
		pid.Hex(), raw,
	)
	if err != nil {
		return storeErr("insert peer", err)
	}
	return nil
}

// AddPeer stores the peer and node transactions carried by info. When
// info declares the caller's own key, the entry is treated as a stale
// self-reference to clean up: any node row under selfKey is removed
// and the call succeeds without inserting anything.
func (s *Store) AddPeer(ctx context.Context, info *schema.PeerNodeInfo, selfKey *schema.PublicKey) error {
	for _, pk := range info.PublicKeys() {
		if pk.Equal(selfKey) {
			log.Debugf("Ignoring self-referential peer info for %s", selfKey.Hex())
			return s.RemoveNode(ctx, selfKey)
		}
	}
	if err := s.InsertPeer(ctx, info.LatestPeerTransaction); err != nil {
		return err
	}
	return s.InsertNode(ctx, info.LatestNodeTransaction)
}

// RemoveNode deletes the node row for pk. When that was the last node
// under its peer, the peer row is deleted as well.
func (s *Store) RemoveNode(ctx context.Context, pk *schema.PublicKey) error {
	var peerHex string
	err := s.db.QueryRowContext(ctx,
		`SELECT peer_id FROM nodes WHERE public_key = $1`, pk.Hex(),
	).Scan(&peerHex)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return storeErr("lookup node peer", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE public_key = $1`, pk.Hex(),
	); err != nil {
		return storeErr("delete node", err)
	}
	if peerHex == "" {
		return nil
	}
	var remaining int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nodes WHERE peer_id = $1`, peerHex,
	).Scan(&remaining)
	if err != nil {
		return storeErr("count peer nodes", err)
	}
	if remaining == 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM peers WHERE id = $1`, peerHex,
		); err != nil {
			return storeErr("delete peer", err)
		}
		log.Debugf("Removed peer %s with no remaining nodes", peerHex)
	}
	return nil
}

// UpdateLastSeen marks pk as observed at timeMillis.
func (s *Store) UpdateLastSeen(ctx context.Context, pk *schema.PublicKey, timeMillis int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET last_seen = $1 WHERE public_key = $2`,
		timeMillis, pk.Hex(),
	)
	if err != nil {
		return storeErr("update last seen", err)
	}
	return nil
}

// NodeTransaction returns the stored node transaction for pk, or nil
// when no row exists.
func (s *Store) NodeTransaction(ctx context.Context, pk *schema.PublicKey) (*schema.Transaction, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT tx FROM nodes WHERE public_key = $1`, pk.Hex(),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("query node", err)
	}
	return schema.UnmarshalTransaction(raw)
}

// PeerTransaction returns the stored peer transaction for pid, or nil
// when no row exists.
func (s *Store) PeerTransaction(ctx context.Context, pid *schema.PeerID) (*schema.Transaction, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT tx FROM peers WHERE id = $1`, pid.Hex(),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("query peer", err)
	}
	return schema.UnmarshalTransaction(raw)
}

// ActiveNodes returns the identity keys of nodes seen within the
// liveness window. Pass includeStale to also return nodes whose
// last_seen has fallen outside the window.
func (s *Store) ActiveNodes(ctx context.Context, includeStale bool) ([]*schema.PublicKey, error) {
	nodes, err := s.ActiveNodeInfo(ctx, includeStale)
	if err != nil {
		return nil, err
	}
	keys := make([]*schema.PublicKey, 0, len(nodes))
	for _, nm := range nodes {
		pk, err := nm.PublicKeyOrErr()
		if err != nil {
			return nil, err
		}
		keys = append(keys, pk)
	}
	return keys, nil
}

// ActiveNodeInfo returns the metadata of nodes seen within the
// liveness window, re-derived from the stored canonical transaction
// bytes. Pass includeStale to also return nodes outside the window.
func (s *Store) ActiveNodeInfo(ctx context.Context, includeStale bool) ([]*schema.NodeMetadata, error) {
	cutoff := int64(0)
	if !includeStale {
		cutoff = s.now() - s.liveness.Milliseconds()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx FROM nodes
		WHERE status = $1 AND last_seen >= $2
		ORDER BY public_key`,
		statusReady, cutoff,
	)
	if err != nil {
		return nil, storeErr("query active nodes", err)
	}
	defer rows.Close()

	var nodes []*schema.NodeMetadata
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, storeErr("scan active node", err)
		}
		tx, err := schema.UnmarshalTransaction(raw)
		if err != nil {
			return nil, err
		}
		nm, err := tx.NodeMetadataPayload()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, nm)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate active nodes", err)
	}
	return nodes, nil
}

// SelectGossipPeers returns the keys of the nodes the configured
// policy selects to receive tx. The candidate set is the currently
// active nodes.
func (s *Store) SelectGossipPeers(ctx context.Context, tx *schema.Transaction) ([]*schema.PublicKey, error) {
	candidates, err := s.ActiveNodeInfo(ctx, false)
	if err != nil {
		return nil, err
	}
	return s.policy.SelectPeers(tx, candidates), nil
}

// PeersNear returns the active nodes whose partition horizon, selected
// by dist, covers h.
func (s *Store) PeersNear(ctx context.Context, h schema.Hash, dist func(*schema.PartitionInfo) *int64) ([]*schema.NodeMetadata, error) {
	candidates, err := s.ActiveNodeInfo(ctx, false)
	if err != nil {
		return nil, err
	}
	var near []*schema.NodeMetadata
	for _, nm := range candidates {
		if nm.HashInRange(h, dist) {
			near = append(near, nm)
		}
	}
	return near, nil
}
