//go:build xz

package tinyfs

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

type xzCodec struct{}

func (xzCodec) Name() string { return "xz" }

func (xzCodec) Compress(dst, src []byte) []byte {
	var out bytes.Buffer
	w, err := xz.NewWriter(&out)
	if err != nil {
		fatalf("xzCodec.Compress", "%s", err)
	}
	if _, err := w.Write(src); err != nil {
		fatalf("xzCodec.Compress", "%s", err)
	}
	if err := w.Close(); err != nil {
		fatalf("xzCodec.Compress", "%s", err)
	}
	return append(dst, out.Bytes()...)
}

func (xzCodec) Decompress(dst, src []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	RegisterCodec(xzCodec{})
}
