package netdb

import (
	"testing"

	"github.com/anonoverlay/peertest/pkg/interfaces"
	"github.com/anonoverlay/peertest/pkg/types"
)

func TestLocalCache_PutAndLookup(t *testing.T) {
	c := NewLocalCache(4)
	info := interfaces.RouterInfo{NodeID: "alice", Port: 4000}
	c.Put(info)

	got, ok := c.LookupLocal("alice")
	if !ok {
		t.Fatal("expected lookup to hit")
	}
	if got.Port != 4000 {
		t.Fatalf("unexpected port: %d", got.Port)
	}
}

func TestLocalCache_MissReturnsFalse(t *testing.T) {
	c := NewLocalCache(4)
	_, ok := c.LookupLocal("nobody")
	if ok {
		t.Fatal("expected miss")
	}
}

func TestLocalCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLocalCache(2)
	c.Put(interfaces.RouterInfo{NodeID: "a"})
	c.Put(interfaces.RouterInfo{NodeID: "b"})
	c.Put(interfaces.RouterInfo{NodeID: "c"})

	if c.Len() != 2 {
		t.Fatalf("expected capacity-bounded cache, got len=%d", c.Len())
	}
	if _, ok := c.LookupLocal("a"); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
}

func TestCapableSelector_RoundRobinsAcrossPeers(t *testing.T) {
	s := NewCapableSelector()
	peers := []interfaces.PeerState{
		{RemotePeer: "p1"},
		{RemotePeer: "p2"},
	}
	s.SetPeers(types.CapabilityTesting, peers)

	first, ok := s.GetPeerState(types.CapabilityTesting)
	if !ok {
		t.Fatal("expected a peer")
	}
	second, _ := s.GetPeerState(types.CapabilityTesting)
	if first.RemotePeer == second.RemotePeer {
		t.Fatal("expected round-robin to alternate between peers")
	}
}

func TestCapableSelector_NoCandidates(t *testing.T) {
	s := NewCapableSelector()
	_, ok := s.GetPeerState(types.CapabilityTesting)
	if ok {
		t.Fatal("expected no candidates for an unset capability")
	}
}
