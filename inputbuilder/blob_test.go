package inputbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallBlob encodes a payload of at most 27 bytes into a canonical blob:
// the version tag and 3-byte length occupy the first field element's bytes
// 1..5, the payload sits in its remaining 27 bytes, and everything else
// stays zero.
func smallBlob(t *testing.T, data []byte) []byte {
	t.Helper()
	require.LessOrEqual(t, len(data), 27)
	blob := make([]byte, blobDataCapacity)
	blob[blobVersionOffset] = blobEncodingVersion
	blob[2] = byte(len(data) >> 16)
	blob[3] = byte(len(data) >> 8)
	blob[4] = byte(len(data))
	copy(blob[5:], data)
	return blob
}

func TestDecodeBlobDataRoundtrip(t *testing.T) {
	payload := []byte("hello raiko")
	got := DecodeBlobData(smallBlob(t, payload))
	assert.Equal(t, payload, got)
}

func TestDecodeBlobDataEmptyPayload(t *testing.T) {
	got := DecodeBlobData(smallBlob(t, nil))
	assert.Len(t, got, 0)
}

func TestDecodeBlobDataRejectsWrongVersion(t *testing.T) {
	blob := smallBlob(t, []byte("x"))
	blob[blobVersionOffset] = 1
	assert.Nil(t, DecodeBlobData(blob))
}

func TestDecodeBlobDataRejectsShortBlob(t *testing.T) {
	assert.Nil(t, DecodeBlobData(make([]byte, 100)))
}

func TestDecodeBlobDataRejectsNonCanonicalFieldElement(t *testing.T) {
	blob := smallBlob(t, []byte("x"))
	// Second field element's first byte with a high-order bit set.
	blob[32] = 0b1000_0000
	assert.Nil(t, DecodeBlobData(blob))
}

func TestDecodeBlobDataRejectsTrailingGarbage(t *testing.T) {
	blob := smallBlob(t, []byte("x"))
	// Nonzero byte past the consumed input region.
	blob[blobDataCapacity-1] = 0xff
	assert.Nil(t, DecodeBlobData(blob))
}

// TestDecodeTxDataToManifest walks the full pipeline: a compressed RLP
// proposal carried in a blob decodes back into the manifest.
func TestDecodeTxDataToManifest(t *testing.T) {
	compressed, err := EncodeAndCompressProposal(&ProposalManifest{ProverAuthBytes: []byte{0xaa}})
	require.NoError(t, err)
	require.LessOrEqual(t, len(compressed), 27, "test proposal must fit the single-field-element fast path")

	txData, err := DecodeTxData([][]byte{smallBlob(t, compressed)})
	require.NoError(t, err)

	manifest, err := DecodeAndDecompressProposal(txData)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa}, manifest.ProverAuthBytes)
	assert.Empty(t, manifest.Blocks)
}

func TestDecodeTxDataFailsOnBadBlob(t *testing.T) {
	_, err := DecodeTxData([][]byte{make([]byte, 10)})
	require.Error(t, err)
}
