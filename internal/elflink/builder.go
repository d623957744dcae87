package elflink

import "encoding/binary"

// byteSink is the growing output buffer every push* method appends to,
// mirroring the reference compiler's single `bytes`/`bytes_size` pair.
type byteSink struct {
	buf []byte
}

func (s *byteSink) size() int { return len(s.buf) }

func (s *byteSink) pushByte(b byte) { s.buf = append(s.buf, b) }

func (s *byteSink) pushZeros(n int) {
	for i := 0; i < n; i++ {
		s.buf = append(s.buf, 0)
	}
}

func (s *byteSink) pushBytes(b []byte) { s.buf = append(s.buf, b...) }

func (s *byteSink) push16(n uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], n)
	s.buf = append(s.buf, b[:]...)
}

func (s *byteSink) push32(n uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	s.buf = append(s.buf, b[:]...)
}

func (s *byteSink) push64(n uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	s.buf = append(s.buf, b[:]...)
}

// pushString writes s followed by a single NUL terminator, the layout
// every name in .dynstr/.strtab/the interned data-string blob uses.
func (s *byteSink) pushString(str string) {
	s.buf = append(s.buf, str...)
	s.buf = append(s.buf, 0)
}

// pushAlignment pads with zero bytes up to the next multiple of n.
func (s *byteSink) pushAlignment(n int) {
	excess := s.size() % n
	if excess > 0 {
		s.pushZeros(n - excess)
	}
}

// overwrite32 patches a previously-pushed placeholder in place, used for
// the two-pass relocations (PLT targets, GOT addresses, rela.dyn
// addends) that are only known once every section has a final address.
func (s *byteSink) overwrite32(n uint32, at int) {
	binary.LittleEndian.PutUint32(s.buf[at:at+4], n)
}

func (s *byteSink) overwrite64(n uint64, at int) {
	binary.LittleEndian.PutUint64(s.buf[at:at+8], n)
}
