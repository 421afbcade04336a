package chanid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortChannelIDRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		scid ShortChannelID
	}{
		{
			name: "zero",
			scid: ShortChannelID{},
		},
		{
			name: "typical",
			scid: ShortChannelID{
				BlockHeight: 539268,
				TxIndex:     2,
				OutputIndex: 0,
			},
		},
		{
			name: "max fields",
			scid: ShortChannelID{
				BlockHeight: 0xFFFFFF,
				TxIndex:     0xFFFFFF,
				OutputIndex: 0xFFFF,
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			packed := testCase.scid.ToUint64()
			got := NewShortChanIDFromInt(packed)
			require.Equal(t, testCase.scid, got)

			str := testCase.scid.String()
			parsed, err := ParseShortChannelID(str)
			require.NoError(t, err)
			require.Equal(t, testCase.scid, parsed)
		})
	}
}

func TestShortChannelIDString(t *testing.T) {
	t.Parallel()

	scid := ShortChannelID{BlockHeight: 539268, TxIndex: 2, OutputIndex: 0}
	require.Equal(t, "539268x2x0", scid.String())
}

func TestParseShortChannelIDInvalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"1x2",
		"1x2x3x4",
		"ax2x3",
	}

	for _, s := range tests {
		s := s

		t.Run(s, func(t *testing.T) {
			t.Parallel()

			_, err := ParseShortChannelID(s)
			require.Error(t, err)
		})
	}
}
