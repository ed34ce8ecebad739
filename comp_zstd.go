//go:build zstd

package tinyfs

import "github.com/klauspost/compress/zstd"

type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func (zstdCodec) Name() string { return "zstd" }

func (c zstdCodec) Compress(dst, src []byte) []byte {
	return c.enc.EncodeAll(src, dst)
}

func (c zstdCodec) Decompress(dst, src []byte) ([]byte, error) {
	return c.dec.DecodeAll(src, dst)
}

func init() {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		fatalf("comp_zstd.init", "%s", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		fatalf("comp_zstd.init", "%s", err)
	}
	RegisterCodec(zstdCodec{enc: enc, dec: dec})
}
