package embed

import (
	"debug/elf"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// ELF embeds the section by writing an ELF relocatable object directly.  It
// needs no external tool.
type ELF struct{}

func (ELF) Name() string {
	return "elf"
}

func (ELF) Convert(req *Request) error {
	obj, err := buildELF(req.Data, req.Section, req.Platform)
	if err != nil {
		return err
	}

	if err := os.WriteFile(req.Output, obj, 0644); err != nil {
		return errors.Wrapf(err, "failed to write object file `%s`", req.Output)
	}

	return nil
}

// elfBuffer is an append-only buffer emitting fields in the byte order and
// word size of one ELF class.
type elfBuffer struct {
	buf   []byte
	order binary.ByteOrder
	is64  bool
}

func (b *elfBuffer) code(v string) *elfBuffer { b.buf = append(b.buf, v...); return b }
func (b *elfBuffer) db(v uint8) *elfBuffer    { b.buf = append(b.buf, v); return b }

func (b *elfBuffer) dw(v uint16) *elfBuffer {
	var tmp [2]byte
	b.order.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

func (b *elfBuffer) dd(v uint32) *elfBuffer {
	var tmp [4]byte
	b.order.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

func (b *elfBuffer) dq(v uint64) *elfBuffer {
	var tmp [8]byte
	b.order.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

// word emits an address-sized field: Elf32_Addr/Off or Elf64_Addr/Off/Xword.
func (b *elfBuffer) word(v uint64) *elfBuffer {
	if b.is64 {
		return b.dq(v)
	}

	return b.dd(uint32(v))
}

// align pads the buffer with zeroes to a multiple of n.
func (b *elfBuffer) align(n int) {
	for len(b.buf)%n != 0 {
		b.buf = append(b.buf, 0)
	}
}

type elfSection struct {
	name      uint32
	typ       elf.SectionType
	flags     elf.SectionFlag
	offset    int
	size      int
	link      uint32
	info      uint32
	addralign uint64
	entsize   uint64
}

// buildELF lays out a relocatable object holding one allocated read-only
// section plus a symbol marking its start.
//
// Layout: ELF header, section contents, .strtab, .symtab, .shstrtab, section
// header table.
func buildELF(data []byte, section string, p *Platform) ([]byte, error) {
	is64 := p.Class == elf.ELFCLASS64
	if !is64 && p.Class != elf.ELFCLASS32 {
		return nil, errors.Errorf("unsupported ELF class %s", p.Class)
	}

	ehdrSize, shdrSize, symSize, wordSize := 52, 40, 16, 4
	if is64 {
		ehdrSize, shdrSize, symSize, wordSize = 64, 64, 24, 8
	}

	bin := &elfBuffer{order: p.ByteOrder, is64: is64}
	newBuffer := func() *elfBuffer { return &elfBuffer{order: p.ByteOrder, is64: is64} }

	// the header is written last, once the section header offset is known
	bin.buf = make([]byte, ehdrSize)

	// section names
	shstrtab := newBuffer().db(0)
	addName := func(name string) uint32 {
		off := uint32(len(shstrtab.buf))
		shstrtab.code(name).db(0)
		return off
	}

	shdrs := []elfSection{{}}

	// - - Section contents  - - - - - - - - - - - - - - - - - - - - - - - - -

	shdrs = append(shdrs, elfSection{
		name:      addName(section),
		typ:       elf.SHT_PROGBITS,
		flags:     elf.SHF_ALLOC,
		offset:    len(bin.buf),
		size:      len(data),
		addralign: 1,
	})
	dataIndex := uint16(len(shdrs) - 1)
	bin.buf = append(bin.buf, data...)

	// - - Symbol table  - - - - - - - - - - - - - - - - - - - - - - - - - - -

	strtab := newBuffer().db(0)
	symtab := newBuffer()

	writeSym := func(name uint32, info uint8, shndx uint16, value, size uint64) {
		if is64 {
			symtab.dd(name).db(info).db(uint8(elf.STV_DEFAULT)).dw(shndx).dq(value).dq(size)
		} else {
			symtab.dd(name).dd(uint32(value)).dd(uint32(size)).db(info).db(uint8(elf.STV_DEFAULT)).dw(shndx)
		}
	}

	// null symbol, then the section symbol, then the only global
	writeSym(0, elf.ST_INFO(elf.STB_LOCAL, elf.STT_NOTYPE), 0, 0, 0)
	writeSym(0, elf.ST_INFO(elf.STB_LOCAL, elf.STT_SECTION), dataIndex, 0, 0)

	symName := uint32(len(strtab.buf))
	strtab.code(symbolName(section)).db(0)
	writeSym(symName, elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT), dataIndex, 0, uint64(len(data)))
	const firstGlobal = 2

	shdrs = append(shdrs, elfSection{
		name:      addName(".strtab"),
		typ:       elf.SHT_STRTAB,
		offset:    len(bin.buf),
		size:      len(strtab.buf),
		addralign: 1,
	})
	strtabIndex := uint32(len(shdrs) - 1)
	bin.buf = append(bin.buf, strtab.buf...)

	bin.align(wordSize)
	shdrs = append(shdrs, elfSection{
		name:      addName(".symtab"),
		typ:       elf.SHT_SYMTAB,
		offset:    len(bin.buf),
		size:      len(symtab.buf),
		link:      strtabIndex,
		info:      firstGlobal,
		addralign: uint64(wordSize),
		entsize:   uint64(symSize),
	})
	bin.buf = append(bin.buf, symtab.buf...)

	// - - Section names and section table - - - - - - - - - - - - - - - - - -

	shdrs = append(shdrs, elfSection{
		name:      addName(".shstrtab"),
		typ:       elf.SHT_STRTAB,
		addralign: 1,
	})
	shstrtabIndex := len(shdrs) - 1
	shdrs[shstrtabIndex].offset = len(bin.buf)
	shdrs[shstrtabIndex].size = len(shstrtab.buf)
	bin.buf = append(bin.buf, shstrtab.buf...)

	bin.align(wordSize)
	shoff := len(bin.buf)
	for _, sh := range shdrs {
		bin.dd(sh.name).dd(uint32(sh.typ))
		bin.word(uint64(sh.flags))
		bin.word(0) // Memory address
		bin.word(uint64(sh.offset)).word(uint64(sh.size))
		bin.dd(sh.link).dd(sh.info)
		bin.word(sh.addralign).word(sh.entsize)
	}

	// - - ELF header  - - - - - - - - - - - - - - - - - - - - - - - - - - - -

	hdr := newBuffer()
	hdr.code("\x7FELF").db(uint8(p.Class))
	if p.ByteOrder == binary.BigEndian {
		hdr.db(uint8(elf.ELFDATA2MSB))
	} else {
		hdr.db(uint8(elf.ELFDATA2LSB))
	}
	hdr.db(uint8(elf.EV_CURRENT)).db(uint8(elf.ELFOSABI_NONE))
	hdr.code("\x00\x00\x00\x00\x00\x00\x00\x00") // ABI version, padding

	hdr.dw(uint16(elf.ET_REL)).dw(uint16(p.Machine)).dd(uint32(elf.EV_CURRENT))
	hdr.word(0)             // Entry point address
	hdr.word(0)             // Program header offset
	hdr.word(uint64(shoff)) // Section header offset
	hdr.dd(p.ELFFlags)
	hdr.dw(uint16(ehdrSize))
	hdr.dw(0).dw(0) // No program headers
	hdr.dw(uint16(shdrSize))
	hdr.dw(uint16(len(shdrs)))
	hdr.dw(uint16(shstrtabIndex))

	copy(bin.buf, hdr.buf)
	return bin.buf, nil
}
