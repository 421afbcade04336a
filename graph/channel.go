// Package graph implements the static channel graph (spec component C1):
// a directed multigraph of per-channel gossip metadata, immutable once
// loaded.
package graph

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/chanid"
)

// MilliSatoshi is a thousandth of a satoshi, used for fee and HTLC-limit
// fields the way lnwire.MilliSatoshi is used throughout the teacher's wire
// layer.
type MilliSatoshi uint64

// ChannelRef uniquely identifies one directed channel: a parallel edge is
// identified by its short channel id, so two channels between the same
// ordered pair of nodes are kept distinct (spec.md §3, design note in §9).
type ChannelRef struct {
	Src chanid.Vertex
	Dst chanid.Vertex
	SCID chanid.ShortChannelID
}

// Reverse returns the ChannelRef for the opposite direction of the same
// physical channel.
func (r ChannelRef) Reverse() ChannelRef {
	return ChannelRef{Src: r.Dst, Dst: r.Src, SCID: r.SCID}
}

// ChannelEdge is one directed, static gossip-sourced channel: immutable
// once loaded into the graph (spec.md §3).
type ChannelEdge struct {
	Ref ChannelRef

	// Capacity is the total channel capacity in satoshis.
	Capacity btcutil.Amount

	// BaseFee is the channel's base routing fee, in millisatoshi.
	BaseFee MilliSatoshi

	// PPM is the channel's fee rate in parts-per-million.
	PPM uint32

	// HtlcMin/HtlcMax bound the size of a single forwarded HTLC, in
	// millisatoshi.
	HtlcMin MilliSatoshi
	HtlcMax MilliSatoshi

	// CltvDelta is the forwarding node's requested time-lock delta.
	CltvDelta uint16

	// Active reflects the channel's last-known up/down gossip state.
	Active bool

	// Announced is false for private/unannounced channels.
	Announced bool

	// Features carries the forwarding node's raw feature bits, opaque to
	// the router core.
	Features []byte
}

// RoutingCostMsat computes the millisatoshi fee this channel would charge
// to forward amt satoshis, per spec.md §4.1: floor(ppm*amt/1000) + base_fee.
func (e *ChannelEdge) RoutingCostMsat(amt btcutil.Amount) MilliSatoshi {
	return MilliSatoshi(uint64(e.PPM)*uint64(amt)/1000) + e.BaseFee
}
