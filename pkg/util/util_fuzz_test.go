package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzDecodeDeviceTransactionID(f *testing.F) {
	f.Add("AAA")
	f.Add("AAA=")
	f.Add("")
	f.Add("not base64!")

	f.Fuzz(func(t *testing.T, txID string) {
		decoded, err := DecodeDeviceTransactionID(txID)
		if err != nil {
			require.ErrorIs(t, err, ErrInvalidTransportEncoding)
			return
		}
		// Whatever decodes must re-encode to the unpadded input.
		require.Equal(t, EncodeTransportString(decoded), trimPadding(txID))
	})
}

func trimPadding(s string) string {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return s
}
