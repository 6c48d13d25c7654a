package inputbuilder

import (
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
	"github.com/taikoxyz/raiko-sub002/provertype"
)

// Blob encoding parameters, shared with the rollup node's blob codec. Each
// field element carries 31 full data bytes plus 6 usable bits in its first
// byte; the first field element additionally spends 4 bytes (1..4) on the
// version tag and the 3-byte big-endian payload length.
const (
	blobFieldElements    = 4096
	blobFieldElementSize = 32
	blobDataCapacity     = blobFieldElements * blobFieldElementSize
	blobVersionOffset    = 1
	blobEncodingVersion  = 0
	maxBlobDataSize      = (4*31+3)*1024 - 4
)

// DecodeBlobData extracts the raw payload from a single blob's field-element
// encoding. A blob that fails any structural check (wrong version, oversized
// length, a field element with its two high bits set, nonzero padding)
// decodes to nil.
func DecodeBlobData(blob []byte) []byte {
	if len(blob) < blobDataCapacity {
		return nil
	}
	if blob[blobVersionOffset] != blobEncodingVersion {
		return nil
	}

	// The payload length lives in bytes 2..5 as a 3-byte big-endian value.
	outputLen := int(blob[2])<<16 | int(blob[3])<<8 | int(blob[4])
	if outputLen > maxBlobDataSize {
		return nil
	}

	// Round 0 is special: version and length occupy the first field
	// element's first 5 bytes, so only its remaining 27 bytes are payload.
	output := make([]byte, maxBlobDataSize)
	copy(output[0:27], blob[5:32])

	opos := 28 // next byte to write in output
	ipos := 32 // next byte to read in blob
	var encodedByte [4]byte
	var err error
	encodedByte[0] = blob[0]
	for i := 1; i < 4; i++ {
		encodedByte[i], opos, ipos, err = decodeFieldElement(blob, opos, ipos, output)
		if err != nil {
			return nil
		}
	}
	opos = reassembleBytes(opos, encodedByte, output)

	// Each remaining round decodes 4 field elements (128 bytes) of input
	// into 127 bytes of output.
	for round := 1; round < 1024 && opos < outputLen; round++ {
		for i := 0; i < 4; i++ {
			encodedByte[i], opos, ipos, err = decodeFieldElement(blob, opos, ipos, output)
			if err != nil {
				return nil
			}
		}
		opos = reassembleBytes(opos, encodedByte, output)
	}

	for _, b := range output[outputLen:] {
		if b != 0 {
			return nil
		}
	}
	for _, b := range blob[ipos:blobDataCapacity] {
		if b != 0 {
			return nil
		}
	}
	return output[:outputLen]
}

// decodeFieldElement copies one field element's 31 payload bytes into
// output and returns its first byte, which carries a 6-bit chunk
// reassembled later.
func decodeFieldElement(blob []byte, opos, ipos int, output []byte) (byte, int, int, error) {
	// The two high-order bits of each field element's first byte must be
	// zero for the element to be canonical.
	if blob[ipos]&0b1100_0000 != 0 {
		return 0, 0, 0, fmt.Errorf("inputbuilder: invalid field element at %d", ipos)
	}
	copy(output[opos:opos+31], blob[ipos+1:ipos+32])
	return blob[ipos], opos + 32, ipos + 32, nil
}

// reassembleBytes reconstructs the 3 output bytes spread across the 4 field
// elements' 6-bit chunks and writes them into their slots.
func reassembleBytes(opos int, encodedByte [4]byte, output []byte) int {
	opos-- // we don't output a 128th byte
	x := (encodedByte[0] & 0b0011_1111) | ((encodedByte[1] & 0b0011_0000) << 2)
	y := (encodedByte[1] & 0b0000_1111) | ((encodedByte[3] & 0b0000_1111) << 4)
	z := (encodedByte[2] & 0b0011_1111) | ((encodedByte[3] & 0b0011_0000) << 2)
	output[opos-32] = z
	output[opos-32*2] = y
	output[opos-32*3] = x
	return opos
}

// DecodeTxData decodes each blob and concatenates the payloads, yielding
// the compressed proposal bytes. Any undecodable blob fails the whole
// batch.
func DecodeTxData(blobs [][]byte) ([]byte, error) {
	var data []byte
	for i, blob := range blobs {
		decoded := DecodeBlobData(blob)
		if decoded == nil {
			return nil, fmt.Errorf("inputbuilder: blob %d is not canonically encoded", i)
		}
		data = append(data, decoded...)
	}
	return data, nil
}

// KzgToVersionedHash computes the EIP-4844 versioned hash of a KZG
// commitment (sha256 with the first byte replaced by the version tag).
func KzgToVersionedHash(commitment kzg4844.Commitment) common.Hash {
	return common.Hash(kzg4844.CalcBlobHashV1(sha256.New(), &commitment))
}

// VerifyBlobUsage checks the blob commitments or proofs against the blobs
// themselves, per the configured blob proof type: KzgVersionedHash requires
// one commitment per blob and recomputes each; ProofOfEquivalence requires
// one proof per blob and verifies each evaluation proof.
func VerifyBlobUsage(blobs [][]byte, commitments []kzg4844.Commitment, proofs []kzg4844.Proof, blobProofType provertype.BlobProofType) error {
	switch blobProofType {
	case provertype.BlobProofTypeKzgVersionedHash:
		if len(blobs) != len(commitments) {
			return fmt.Errorf("inputbuilder: each blob needs its own commitment, have %d blobs and %d commitments", len(blobs), len(commitments))
		}
		for i, raw := range blobs {
			blob, err := toKzgBlob(raw)
			if err != nil {
				return err
			}
			commitment, err := kzg4844.BlobToCommitment(blob)
			if err != nil {
				return fmt.Errorf("inputbuilder: commitment computation failed for blob %d: %w", i, err)
			}
			if commitment != commitments[i] {
				return fmt.Errorf("inputbuilder: blob %d commitment mismatch", i)
			}
		}
	case provertype.BlobProofTypeProofOfEquivalence:
		if len(blobs) != len(proofs) {
			return fmt.Errorf("inputbuilder: each blob needs its own proof, have %d blobs and %d proofs", len(blobs), len(proofs))
		}
		if len(blobs) != len(commitments) {
			return fmt.Errorf("inputbuilder: each blob needs its own commitment, have %d blobs and %d commitments", len(blobs), len(commitments))
		}
		for i, raw := range blobs {
			blob, err := toKzgBlob(raw)
			if err != nil {
				return err
			}
			if err := kzg4844.VerifyBlobProof(blob, commitments[i], proofs[i]); err != nil {
				return fmt.Errorf("inputbuilder: blob %d proof verification failed: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("inputbuilder: unknown blob proof type %s", blobProofType)
	}
	return nil
}

func toKzgBlob(raw []byte) (*kzg4844.Blob, error) {
	if len(raw) != len(kzg4844.Blob{}) {
		return nil, fmt.Errorf("inputbuilder: blob must be %d bytes, got %d", len(kzg4844.Blob{}), len(raw))
	}
	blob := new(kzg4844.Blob)
	copy(blob[:], raw)
	return blob, nil
}
