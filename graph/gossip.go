package graph

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog"
	"github.com/mitchellh/mapstructure"
	"github.com/pickhardtlabs/ppay/chanid"
	"github.com/pickhardtlabs/ppay/ppaylog"
)

// log is this package's subsystem logger, disabled until UseLogger is
// called by the top-level ppay package's wiring.
var log = ppaylog.Disabled()

// UseLogger configures the package-level logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// aliasTable maps each canonical gossip field name to the set of
// ecosystem-specific aliases that may appear in a raw record instead of
// the canonical name, per spec.md §6.
var aliasTable = map[string][]string{
	"source":                {"node1_pub"},
	"destination":           {"node2_pub"},
	"short_channel_id":      {"channel_id"},
	"satoshis":              {"capacity"},
	"htlc_minimum_msat":     {"min_htlc"},
	"htlc_maximum_msat":     {"max_htlc_msat"},
	"base_fee_millisatoshi": {"fee_base_msat"},
	"fee_per_millionth":     {"fee_rate_milli_msat"},
	"delay":                 {"time_lock_delta"},
}

// canonicalRecord is the decode target mapstructure fills in after alias
// resolution. Fields accept the loose numeric/string shapes a JSON gossip
// dump tends to produce (numbers may arrive as float64 via encoding/json).
type canonicalRecord struct {
	Source              string      `mapstructure:"source"`
	Destination         string      `mapstructure:"destination"`
	ShortChannelID      interface{} `mapstructure:"short_channel_id"`
	Satoshis            int64       `mapstructure:"satoshis"`
	HtlcMinimumMsat     uint64      `mapstructure:"htlc_minimum_msat"`
	HtlcMaximumMsat     uint64      `mapstructure:"htlc_maximum_msat"`
	BaseFeeMillisatoshi uint64      `mapstructure:"base_fee_millisatoshi"`
	FeePerMillionth     uint32      `mapstructure:"fee_per_millionth"`
	Delay               uint16      `mapstructure:"delay"`
	Active              bool        `mapstructure:"active"`
	Disabled            *bool       `mapstructure:"disabled"`
	Announced           *bool       `mapstructure:"announced"`
	Features            string      `mapstructure:"features"`
}

// resolveAliases rewrites a raw gossip record so that every canonical field
// name is present, preferring an existing canonical key but falling back
// to the first alias found, per the table in spec.md §6. The "active"
// field gets special handling: the "disabled" alias is logically negated
// ("active" = "!disabled").
func resolveAliases(raw map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	for canonical, aliases := range aliasTable {
		if _, ok := out[canonical]; ok {
			continue
		}
		for _, alias := range aliases {
			if v, ok := raw[alias]; ok {
				out[canonical] = v
				break
			}
		}
	}

	if _, ok := out["active"]; !ok {
		if disabled, ok := raw["disabled"]; ok {
			if b, ok := disabled.(bool); ok {
				out["active"] = !b
			}
		}
	}

	return out
}

// DecodeGossipRecord normalizes and decodes one raw gossip record (as
// produced by unmarshaling a JSON gossip dump into map[string]interface{})
// into a ChannelEdge, per the canonical schema and alias table of
// spec.md §6. Only announced, active channels are accepted; callers that
// want the remaining records for diagnostics can inspect the returned
// error, which is always an *InvalidRecordError in the rejection case.
func DecodeGossipRecord(raw map[string]interface{}) (*ChannelEdge, error) {
	normalized := resolveAliases(raw)

	var rec canonicalRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return nil, fmt.Errorf("building gossip decoder: %w", err)
	}
	if err := decoder.Decode(normalized); err != nil {
		return nil, &InvalidRecordError{Reason: err.Error()}
	}

	if rec.Source == "" || rec.Destination == "" {
		return nil, &InvalidRecordError{
			Reason: "missing source or destination pubkey",
		}
	}

	announced := rec.Announced == nil || *rec.Announced
	if !announced {
		return nil, &InvalidRecordError{Reason: "channel not announced"}
	}
	if !rec.Active {
		return nil, &InvalidRecordError{Reason: "channel not active"}
	}

	src, err := chanid.NewVertexFromHex(rec.Source)
	if err != nil {
		return nil, &InvalidRecordError{
			Reason: fmt.Sprintf("invalid source pubkey: %v", err),
		}
	}
	dst, err := chanid.NewVertexFromHex(rec.Destination)
	if err != nil {
		return nil, &InvalidRecordError{
			Reason: fmt.Sprintf("invalid destination pubkey: %v", err),
		}
	}

	scid, err := decodeSCID(rec.ShortChannelID)
	if err != nil {
		return nil, &InvalidRecordError{Reason: err.Error()}
	}

	if rec.Satoshis < 0 {
		return nil, &InvalidRecordError{
			Reason: "negative capacity",
		}
	}

	log.Tracef("decoded gossip record for channel %v (%v -> %v)",
		scid, src, dst)

	return &ChannelEdge{
		Ref: ChannelRef{
			Src:  src,
			Dst:  dst,
			SCID: scid,
		},
		Capacity:  btcutil.Amount(rec.Satoshis),
		BaseFee:   MilliSatoshi(rec.BaseFeeMillisatoshi),
		PPM:       rec.FeePerMillionth,
		HtlcMin:   MilliSatoshi(rec.HtlcMinimumMsat),
		HtlcMax:   MilliSatoshi(rec.HtlcMaximumMsat),
		CltvDelta: rec.Delay,
		Active:    rec.Active,
		Announced: announced,
		Features:  []byte(rec.Features),
	}, nil
}

// decodeSCID accepts either the packed 64-bit integer form (as produced by
// JSON-decoding channel_id/short_channel_id) or the "BxTxO" string form.
func decodeSCID(v interface{}) (chanid.ShortChannelID, error) {
	switch t := v.(type) {
	case nil:
		return chanid.ShortChannelID{}, fmt.Errorf(
			"missing short_channel_id")
	case string:
		return chanid.ParseShortChannelID(t)
	case float64:
		return chanid.NewShortChanIDFromInt(uint64(t)), nil
	case int64:
		return chanid.NewShortChanIDFromInt(uint64(t)), nil
	case uint64:
		return chanid.NewShortChanIDFromInt(t), nil
	case int:
		return chanid.NewShortChanIDFromInt(uint64(t)), nil
	default:
		return chanid.ShortChannelID{}, fmt.Errorf(
			"unsupported short_channel_id type %T", v)
	}
}

// InvalidRecordError reports a malformed or filtered-out gossip record,
// corresponding to spec.md §7's InvalidInput error kind.
type InvalidRecordError struct {
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid gossip record: %s", e.Reason)
}
