// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peerstore

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redgold-io/redgold-core/internal/sqltest"
	"github.com/redgold-io/redgold-core/schema"
)

func testKey(seed byte) *schema.PublicKey {
	b := bytes.Repeat([]byte{seed}, 33)
	b[0] = 0x02
	return &schema.PublicKey{Bytes: b}
}

func testPeerID(seed byte) *schema.PeerID {
	return &schema.PeerID{PeerID: testKey(seed)}
}

func nodeTx(nodeSeed, peerSeed byte, part *schema.PartitionInfo) *schema.Transaction {
	return &schema.Transaction{
		Outputs: []*schema.Output{{
			Data: &schema.StandardData{
				NodeMetadata: &schema.NodeMetadata{
					PublicKey:     testKey(nodeSeed),
					PeerID:        testPeerID(peerSeed),
					PartitionInfo: part,
				},
			},
		}},
		StructMetadata: &schema.StructMetadata{Time: 1000},
	}
}

func peerTx(peerSeed byte, nodeSeeds ...byte) *schema.Transaction {
	var nodes []*schema.NodeMetadata
	for _, s := range nodeSeeds {
		nodes = append(nodes, &schema.NodeMetadata{
			PublicKey: testKey(s),
			PeerID:    testPeerID(peerSeed),
		})
	}
	return &schema.Transaction{
		Outputs: []*schema.Output{{
			Data: &schema.StandardData{
				PeerData: &schema.PeerMetadata{
					PeerID:       testPeerID(peerSeed),
					NodeMetadata: nodes,
				},
			},
		}},
		StructMetadata: &schema.StructMetadata{Time: 1000},
	}
}

func newTestStore(t *testing.T, db *sql.DB, opts ...Option) *Store {
	t.Helper()
	s := New(db, opts...)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestInsertNodeReplaces(t *testing.T) {
	t.Parallel()

	sqltest.RunDatabaseTest(t, func(t *testing.T, dbFactory sqltest.DBFactory) {
		ctx := context.Background()
		s := newTestStore(t, dbFactory(t))

		require.NoError(t, s.InsertNode(ctx, nodeTx(0x01, 0x0a, nil)))

		// Re-inserting the same key under a new peer replaces the
		// row rather than adding a second one.
		require.NoError(t, s.InsertNode(ctx, nodeTx(0x01, 0x0b, nil)))

		keys, err := s.ActiveNodes(ctx, false)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		require.True(t, keys[0].Equal(testKey(0x01)))

		stored, err := s.NodeTransaction(ctx, testKey(0x01))
		require.NoError(t, err)
		require.NotNil(t, stored)
		nm, err := stored.NodeMetadataPayload()
		require.NoError(t, err)
		require.Equal(t, testPeerID(0x0b).Hex(), nm.PeerID.Hex())

		missing, err := s.NodeTransaction(ctx, testKey(0x7f))
		require.NoError(t, err)
		require.Nil(t, missing)
	})
}

func TestRemoveNodeCascadesToPeer(t *testing.T) {
	t.Parallel()

	sqltest.RunDatabaseTest(t, func(t *testing.T, dbFactory sqltest.DBFactory) {
		ctx := context.Background()
		s := newTestStore(t, dbFactory(t))

		require.NoError(t, s.InsertPeer(ctx, peerTx(0x0a, 0x01, 0x02)))
		require.NoError(t, s.InsertNode(ctx, nodeTx(0x01, 0x0a, nil)))
		require.NoError(t, s.InsertNode(ctx, nodeTx(0x02, 0x0a, nil)))

		// Removing one of two nodes keeps the peer record.
		require.NoError(t, s.RemoveNode(ctx, testKey(0x01)))
		peer, err := s.PeerTransaction(ctx, testPeerID(0x0a))
		require.NoError(t, err)
		require.NotNil(t, peer)

		// Removing the last node deletes the peer too.
		require.NoError(t, s.RemoveNode(ctx, testKey(0x02)))
		peer, err = s.PeerTransaction(ctx, testPeerID(0x0a))
		require.NoError(t, err)
		require.Nil(t, peer)

		// Removing an absent node is a no-op.
		require.NoError(t, s.RemoveNode(ctx, testKey(0x02)))
	})
}

func TestAddPeerIgnoresSelfReference(t *testing.T) {
	t.Parallel()

	sqltest.RunDatabaseTest(t, func(t *testing.T, dbFactory sqltest.DBFactory) {
		ctx := context.Background()
		s := newTestStore(t, dbFactory(t))

		self := testKey(0x01)

		// A stale self row exists from an earlier exchange.
		require.NoError(t, s.InsertNode(ctx, nodeTx(0x01, 0x0a, nil)))

		info := &schema.PeerNodeInfo{
			LatestPeerTransaction: peerTx(0x0a, 0x01),
			LatestNodeTransaction: nodeTx(0x01, 0x0a, nil),
		}
		require.NoError(t, s.AddPeer(ctx, info, self))

		// The self entry was cleaned up and nothing was inserted.
		keys, err := s.ActiveNodes(ctx, true)
		require.NoError(t, err)
		require.Empty(t, keys)
		peer, err := s.PeerTransaction(ctx, testPeerID(0x0a))
		require.NoError(t, err)
		require.Nil(t, peer)

		// A foreign peer is stored normally.
		other := &schema.PeerNodeInfo{
			LatestPeerTransaction: peerTx(0x0b, 0x02),
			LatestNodeTransaction: nodeTx(0x02, 0x0b, nil),
		}
		require.NoError(t, s.AddPeer(ctx, other, self))
		keys, err = s.ActiveNodes(ctx, false)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		require.True(t, keys[0].Equal(testKey(0x02)))
	})
}

func TestLivenessWindow(t *testing.T) {
	t.Parallel()

	sqltest.RunDatabaseTest(t, func(t *testing.T, dbFactory sqltest.DBFactory) {
		ctx := context.Background()
		now := int64(1_000_000)
		clock := func() int64 { return now }
		s := newTestStore(t, dbFactory(t), withClock(clock))

		require.NoError(t, s.InsertNode(ctx, nodeTx(0x01, 0x0a, nil)))

		keys, err := s.ActiveNodes(ctx, false)
		require.NoError(t, err)
		require.Len(t, keys, 1)

		// Move past the liveness window: the node drops out of the
		// active set but remains visible when stale nodes are
		// requested.
		now += DefaultLivenessWindow.Milliseconds() + 1
		keys, err = s.ActiveNodes(ctx, false)
		require.NoError(t, err)
		require.Empty(t, keys)
		keys, err = s.ActiveNodes(ctx, true)
		require.NoError(t, err)
		require.Len(t, keys, 1)

		// A fresh observation restores the node.
		require.NoError(t, s.UpdateLastSeen(ctx, testKey(0x01), now))
		keys, err = s.ActiveNodes(ctx, false)
		require.NoError(t, err)
		require.Len(t, keys, 1)
	})
}

func TestPeersNearFiltersByPartition(t *testing.T) {
	t.Parallel()

	sqltest.RunDatabaseTest(t, func(t *testing.T, dbFactory sqltest.DBFactory) {
		ctx := context.Background()
		s := newTestStore(t, dbFactory(t))

		// Node 1 accepts everything, node 2 accepts only hashes at
		// zero distance from its own key digest.
		zero := int64(0)
		require.NoError(t, s.InsertNode(ctx, nodeTx(0x01, 0x0a, nil)))
		require.NoError(t, s.InsertNode(ctx, nodeTx(0x02, 0x0a,
			&schema.PartitionInfo{TransactionHash: &zero})))

		h := schema.DigestHash([]byte("target"))
		near, err := s.PeersNear(ctx, h, func(p *schema.PartitionInfo) *int64 {
			return p.TransactionHash
		})
		require.NoError(t, err)
		require.Len(t, near, 1)
		require.True(t, near[0].PublicKey.Equal(testKey(0x01)))

		// With the observation horizon unset on both nodes, every
		// node accepts the hash.
		near, err = s.PeersNear(ctx, h, func(p *schema.PartitionInfo) *int64 {
			return p.ObservationHash
		})
		require.NoError(t, err)
		require.Len(t, near, 2)
	})
}

func TestSelectGossipPeers(t *testing.T) {
	t.Parallel()

	sqltest.RunDatabaseTest(t, func(t *testing.T, dbFactory sqltest.DBFactory) {
		ctx := context.Background()
		db := dbFactory(t)
		s := newTestStore(t, db)

		require.NoError(t, s.InsertNode(ctx, nodeTx(0x01, 0x0a, nil)))
		require.NoError(t, s.InsertNode(ctx, nodeTx(0x02, 0x0b, nil)))

		keys, err := s.SelectGossipPeers(ctx, nodeTx(0x03, 0x0c, nil))
		require.NoError(t, err)
		require.Len(t, keys, 2)

		// A custom policy narrows the selection.
		limited := New(db, WithGossipPolicy(firstOnlyPolicy{}))
		keys, err = limited.SelectGossipPeers(ctx, nodeTx(0x03, 0x0c, nil))
		require.NoError(t, err)
		require.Len(t, keys, 1)
	})
}

type firstOnlyPolicy struct{}

func (firstOnlyPolicy) SelectPeers(_ *schema.Transaction, candidates []*schema.NodeMetadata) []*schema.PublicKey {
	if len(candidates) == 0 {
		return nil
	}
	pk, err := candidates[0].PublicKeyOrErr()
	if err != nil {
		return nil
	}
	return []*schema.PublicKey{pk}
}
