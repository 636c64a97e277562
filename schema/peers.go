// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"encoding/hex"
)

// PeerID identifies a peer: an operator owning one or more nodes.
type PeerID struct {
	PeerID *PublicKey `msgpack:"peer_id"`
}

// Hex returns the hex form of the peer's identity key.
func (p *PeerID) Hex() string {
	if p == nil || p.PeerID == nil {
		return ""
	}
	return p.PeerID.Hex()
}

// Equal compares peer identities by key bytes.
func (p *PeerID) Equal(other *PeerID) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.PeerID.Equal(other.PeerID)
}

// TransportInfo describes how to reach a node on the network.
type TransportInfo struct {
	ExternalHost string `msgpack:"external_host,omitempty"`
	Port         *int64 `msgpack:"port"`
}

// PartitionInfo declares the XOR-distance horizons within which a node
// accepts responsibility for data classes. A nil horizon means the
// node accepts everything of that class.
type PartitionInfo struct {
	TransactionHash *int64 `msgpack:"transaction_hash"`
	ObservationHash *int64 `msgpack:"observation_hash"`
	UtxoHash        *int64 `msgpack:"utxo_hash"`
}

// VersionInfo carries the executable provenance a node advertises.
type VersionInfo struct {
	ExecutableChecksum string `msgpack:"executable_checksum,omitempty"`
	CommitHash         string `msgpack:"commit_hash,omitempty"`
}

// NodeMetadata is the self-description a node publishes: identity,
// owning peer, transport, network, and partition horizons.
type NodeMetadata struct {
	PublicKey     *PublicKey     `msgpack:"public_key"`
	PeerID        *PeerID        `msgpack:"peer_id"`
	Transport     *TransportInfo `msgpack:"transport_info"`
	NetworkType   *Network       `msgpack:"network_environment"`
	PartitionInfo *PartitionInfo `msgpack:"partition_info"`
	VersionInfo   *VersionInfo   `msgpack:"version_info"`
	NodeName      string         `msgpack:"node_name,omitempty"`
}

// PublicKeyOrErr returns the node's identity key, failing when the
// metadata is incomplete.
func (n *NodeMetadata) PublicKeyOrErr() (*PublicKey, error) {
	if n == nil || n.PublicKey == nil {
		return nil, schemaError(ErrMissingField, "missing public key on node metadata")
	}
	return n.PublicKey, nil
}

// ExternalAddress returns the node's advertised host, if any.
func (n *NodeMetadata) ExternalAddress() string {
	if n.Transport == nil {
		return ""
	}
	return n.Transport.ExternalHost
}

// HashInRange reports whether the node accepts responsibility for the
// given hash under the partition horizon selected by dist. A node
// without partition info, or without the selected horizon, accepts
// every hash.
func (n *NodeMetadata) HashInRange(h Hash, dist func(*PartitionInfo) *int64) bool {
	if n == nil || n.PartitionInfo == nil {
		return true
	}
	horizon := dist(n.PartitionInfo)
	if horizon == nil {
		return true
	}
	pk, err := n.PublicKeyOrErr()
	if err != nil {
		return true
	}
	self := DigestHash(pk.Bytes)
	return XorDistance(self, h) <= uint64(*horizon)
}

// TxHashInRange reports responsibility for a transaction hash.
func (n *NodeMetadata) TxHashInRange(h Hash) bool {
	return n.HashInRange(h, func(p *PartitionInfo) *int64 { return p.TransactionHash })
}

// ObservationHashInRange reports responsibility for an observation
// hash.
func (n *NodeMetadata) ObservationHashInRange(h Hash) bool {
	return n.HashInRange(h, func(p *PartitionInfo) *int64 { return p.ObservationHash })
}

// UtxoHashInRange reports responsibility for a UTXO hash.
func (n *NodeMetadata) UtxoHashInRange(h Hash) bool {
	return n.HashInRange(h, func(p *PartitionInfo) *int64 { return p.UtxoHash })
}

// PeerMetadata is the peer-level record: the operator identity and the
// metadata of every node the operator runs.
type PeerMetadata struct {
	PeerID       *PeerID         `msgpack:"peer_id"`
	NodeMetadata []*NodeMetadata `msgpack:"node_metadata"`
	VersionInfo  *VersionInfo    `msgpack:"version_info"`
}

// PeerIDOrErr returns the peer identity, failing when absent.
func (p *PeerMetadata) PeerIDOrErr() (*PeerID, error) {
	if p == nil || p.PeerID == nil || p.PeerID.PeerID == nil {
		return nil, schemaError(ErrMissingField, "missing peer id on peer metadata")
	}
	return p.PeerID, nil
}

// PeerNodeInfo pairs the latest peer transaction with the latest node
// transaction, the unit of peer discovery exchange.
type PeerNodeInfo struct {
	LatestPeerTransaction *Transaction `msgpack:"latest_peer_transaction"`
	LatestNodeTransaction *Transaction `msgpack:"latest_node_transaction"`
}

// NodeMetadataOrErr extracts the node metadata from the node
// transaction.
func (p *PeerNodeInfo) NodeMetadataOrErr() (*NodeMetadata, error) {
	if p.LatestNodeTransaction == nil {
		return nil, schemaError(ErrMissingField, "missing node transaction on peer node info")
	}
	return p.LatestNodeTransaction.NodeMetadataPayload()
}

// PeerMetadataOrErr extracts the peer metadata from the peer
// transaction.
func (p *PeerNodeInfo) PeerMetadataOrErr() (*PeerMetadata, error) {
	if p.LatestPeerTransaction == nil {
		return nil, schemaError(ErrMissingField, "missing peer transaction on peer node info")
	}
	return p.LatestPeerTransaction.PeerData()
}

// PublicKeys collects the node identity keys declared across both the
// peer metadata and the node metadata, deduplicated.
func (p *PeerNodeInfo) PublicKeys() []*PublicKey {
	seen := make(map[string]struct{})
	var keys []*PublicKey
	add := func(k *PublicKey) {
		if k == nil || len(k.Bytes) == 0 {
			return
		}
		hx := hex.EncodeToString(k.Bytes)
		if _, ok := seen[hx]; ok {
			return
		}
		seen[hx] = struct{}{}
		keys = append(keys, k)
	}
	if pm, err := p.PeerMetadataOrErr(); err == nil {
		for _, nm := range pm.NodeMetadata {
			add(nm.PublicKey)
		}
	}
	if nm, err := p.NodeMetadataOrErr(); err == nil {
		add(nm.PublicKey)
	}
	return keys
}
