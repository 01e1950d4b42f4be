package trie

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ZorbaTheGreek7/go-mpt/pkg/rlp"
)

func TestFullNodeCache(t *testing.T) {
	fn := &fullNode{}
	hash, dirty := fn.cache()
	require.Nil(t, hash)
	require.False(t, dirty)

	fn.flags = nodeFlag{dirty: true}
	_, dirty = fn.cache()
	require.True(t, dirty)

	h := hashNode(bytes.Repeat([]byte{0x11}, 32))
	fn.flags = nodeFlag{hash: h, dirty: false}
	hash, dirty = fn.cache()
	require.Equal(t, h, hash)
	require.False(t, dirty)
}

func TestFullNodeCopyIndependence(t *testing.T) {
	fn := &fullNode{flags: nodeFlag{dirty: true}}
	fn.Children[0] = valueNode([]byte("original"))
	fn.Children[15] = valueNode([]byte("fifteen"))

	cp := fn.copy()
	require.NotSame(t, fn, cp)
	require.True(t, cp.flags.dirty)

	cp.Children[0] = valueNode([]byte("modified"))
	require.Equal(t, valueNode([]byte("original")), fn.Children[0])
	require.NotNil(t, cp.Children[15])
}

func TestShortNodeCache(t *testing.T) {
	sn := &shortNode{Key: []byte{0x01}, Val: valueNode([]byte("v"))}
	hash, dirty := sn.cache()
	require.Nil(t, hash)
	require.False(t, dirty)

	h := hashNode(bytes.Repeat([]byte{0x22}, 32))
	sn.flags = nodeFlag{hash: h, dirty: false}
	hash, dirty = sn.cache()
	require.Equal(t, h, hash)
	require.False(t, dirty)
}

func TestShortNodeCopy(t *testing.T) {
	sn := &shortNode{Key: []byte{0x01, 0x02}, Val: valueNode([]byte("val")), flags: nodeFlag{dirty: true}}
	cp := sn.copy()
	require.NotSame(t, sn, cp)
	require.Equal(t, sn.Key, cp.Key)
	require.True(t, cp.flags.dirty)
}

func TestShortNodeIsLeaf(t *testing.T) {
	leaf := &shortNode{Key: []byte{0x01, terminatorByte}}
	require.True(t, leaf.isLeaf())

	ext := &shortNode{Key: []byte{0x01, 0x02}}
	require.False(t, ext.isLeaf())
}

func TestHashNodeCache(t *testing.T) {
	hn := hashNode(bytes.Repeat([]byte{0x33}, 32))
	hash, dirty := hn.cache()
	require.Nil(t, hash)
	require.True(t, dirty)
}

func TestHashNodeIsInline(t *testing.T) {
	require.False(t, hashNode(bytes.Repeat([]byte{0x01}, 32)).isInline())
	require.True(t, hashNode([]byte{0xc2, 0x80, 0x80}).isInline())
}

func TestValueNodeCache(t *testing.T) {
	vn := valueNode([]byte("data"))
	hash, dirty := vn.cache()
	require.Nil(t, hash)
	require.True(t, dirty)
}

func TestCountNonEmptyChildren(t *testing.T) {
	fn := &fullNode{}
	count, sole := countNonEmptyChildren(fn)
	require.Equal(t, 0, count)
	require.Equal(t, -1, sole)

	fn.Children[3] = valueNode([]byte("x"))
	count, sole = countNonEmptyChildren(fn)
	require.Equal(t, 1, count)
	require.Equal(t, 3, sole)

	fn.Children[9] = valueNode([]byte("y"))
	count, _ = countNonEmptyChildren(fn)
	require.Equal(t, 2, count)
}

func TestDecodeNodeEmptyData(t *testing.T) {
	_, err := decodeNode(nil, []byte{})
	require.ErrorIs(t, err, ErrMalformedNode)
}

func TestDecodeNodeInvalidElementCount(t *testing.T) {
	// A 3-element RLP list matches neither the leaf/extension (2) nor
	// branch (17) shape.
	a, err := rlp.EncodeToBytes([]byte("a"))
	require.NoError(t, err)
	b, err := rlp.EncodeToBytes([]byte("b"))
	require.NoError(t, err)
	c, err := rlp.EncodeToBytes([]byte("c"))
	require.NoError(t, err)
	payload := rlp.WrapList(append(append(a, b...), c...))

	_, err = decodeNode(nil, payload)
	require.ErrorIs(t, err, ErrMalformedNode)
}

func TestDecodeNodeShortNodeLeaf(t *testing.T) {
	leaf := &shortNode{
		Key: hexToCompact([]byte{0x01, 0x02, terminatorByte}),
		Val: valueNode([]byte("leaf-value")),
	}
	enc, err := encodeShortNode(leaf)
	require.NoError(t, err)

	hash := hashNode(bytes.Repeat([]byte{0xab}, 32))
	decoded, err := decodeNode(hash, enc)
	require.NoError(t, err)

	sn, ok := decoded.(*shortNode)
	require.True(t, ok)
	require.True(t, hasTerm(sn.Key))
	require.Equal(t, valueNode([]byte("leaf-value")), sn.Val)
	require.Equal(t, hash, sn.flags.hash)
	require.False(t, sn.flags.dirty)
}

func TestDecodeNodeShortNodeExtension(t *testing.T) {
	childHash := hashNode(bytes.Repeat([]byte{0xcc}, 32))
	ext := &shortNode{Key: hexToCompact([]byte{0x01, 0x02}), Val: childHash}
	enc, err := encodeShortNode(ext)
	require.NoError(t, err)

	decoded, err := decodeNode(nil, enc)
	require.NoError(t, err)

	sn, ok := decoded.(*shortNode)
	require.True(t, ok)
	require.False(t, hasTerm(sn.Key))
	ch, ok := sn.Val.(hashNode)
	require.True(t, ok)
	require.Equal(t, childHash, ch)
}

func TestDecodeNodeFullNode(t *testing.T) {
	fn := &fullNode{}
	fn.Children[0] = hashNode(bytes.Repeat([]byte{0x01}, 32))
	fn.Children[5] = hashNode(bytes.Repeat([]byte{0x05}, 32))
	fn.Children[16] = valueNode([]byte("branch-value"))

	enc, err := encodeFullNode(fn)
	require.NoError(t, err)

	hash := hashNode(bytes.Repeat([]byte{0xee}, 32))
	decoded, err := decodeNode(hash, enc)
	require.NoError(t, err)

	decodedFN, ok := decoded.(*fullNode)
	require.True(t, ok)
	require.NotNil(t, decodedFN.Children[0])
	require.NotNil(t, decodedFN.Children[5])
	require.Equal(t, valueNode([]byte("branch-value")), decodedFN.Children[16])
	require.Equal(t, hash, decodedFN.flags.hash)
}

func TestDecodeRef(t *testing.T) {
	n, err := decodeRef(nil)
	require.NoError(t, err)
	require.Nil(t, n)

	data := bytes.Repeat([]byte{0xab}, 32)
	n, err = decodeRef(data)
	require.NoError(t, err)
	hn, ok := n.(hashNode)
	require.True(t, ok)
	require.Equal(t, hashNode(data), hn)
}

func TestEncodeDecodeRoundtripShortNode(t *testing.T) {
	original := &shortNode{
		Key: hexToCompact([]byte{0x0a, 0x0b, terminatorByte}),
		Val: valueNode([]byte("roundtrip-value")),
	}
	enc, err := encodeShortNode(original)
	require.NoError(t, err)

	decoded, err := decodeNode(nil, enc)
	require.NoError(t, err)
	sn, ok := decoded.(*shortNode)
	require.True(t, ok)
	require.True(t, hasTerm(sn.Key))
	require.Equal(t, valueNode([]byte("roundtrip-value")), sn.Val)
}

func TestEncodeDecodeRoundtripFullNode(t *testing.T) {
	original := &fullNode{}
	original.Children[0] = hashNode(bytes.Repeat([]byte{0x01}, 32))
	original.Children[16] = valueNode([]byte("branch-val"))

	enc, err := encodeFullNode(original)
	require.NoError(t, err)

	decoded, err := decodeNode(nil, enc)
	require.NoError(t, err)
	fn, ok := decoded.(*fullNode)
	require.True(t, ok)
	require.NotNil(t, fn.Children[0])
	require.Equal(t, valueNode([]byte("branch-val")), fn.Children[16])
}
