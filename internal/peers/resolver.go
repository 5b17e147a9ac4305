// Package peers resolves the ordered peer slots a node greets on each
// request. Slots are declared once at startup, either in the config file or
// as slot=url flags, and are never rediscovered.
package peers

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dreamware/chorus/internal/cluster"
)

// ParseSlot parses "slot=url". "slot=" declares a slot with no peer.
func ParseSlot(s string) (cluster.PeerAddress, error) {
	slot, addr, ok := strings.Cut(s, "=")
	if !ok {
		return cluster.PeerAddress{}, fmt.Errorf("peer %q: expected slot=url", s)
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return cluster.PeerAddress{}, fmt.Errorf("peer %q: missing slot name", s)
	}
	return cluster.PeerAddress{Slot: slot, Addr: strings.TrimSpace(addr)}, nil
}

// StaticResolver hands out a fixed, ordered slot list.
type StaticResolver struct {
	self  cluster.NodeIdentity
	slots []cluster.PeerAddress
}

// NewStaticResolver validates slots and keeps them in declaration order.
// Slot names must be non-empty and unique.
func NewStaticResolver(self cluster.NodeIdentity, slots []cluster.PeerAddress) (*StaticResolver, error) {
	kept := make([]cluster.PeerAddress, 0, len(slots))
	for _, s := range slots {
		if s.Slot == "" {
			return nil, fmt.Errorf("peer slot with addr %q has no name", s.Addr)
		}
		if slices.IndexFunc(kept, func(k cluster.PeerAddress) bool { return k.Slot == s.Slot }) >= 0 {
			return nil, fmt.Errorf("duplicate peer slot %q", s.Slot)
		}
		kept = append(kept, s)
	}
	return &StaticResolver{self: self, slots: kept}, nil
}

// Resolve returns a fresh copy of the slots for one request. The slot named
// after this node comes back absent; the local greeting already speaks for it.
// Matching is by slot name only: a slot under another name that points at
// this node's own address is still called.
func (r *StaticResolver) Resolve() []cluster.PeerAddress {
	out := slices.Clone(r.slots)
	for i := range out {
		if out[i].Slot == r.self.Name {
			out[i].Addr = ""
		}
	}
	return out
}

// Summary describes the resolved slots for a node's /info endpoint.
func (r *StaticResolver) Summary() []cluster.PeerSummary {
	resolved := r.Resolve()
	out := make([]cluster.PeerSummary, 0, len(resolved))
	for _, p := range resolved {
		out = append(out, cluster.PeerSummary{Slot: p.Slot, Addr: p.Addr, Present: p.Present()})
	}
	return out
}
