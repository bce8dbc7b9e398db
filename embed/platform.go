package embed

import (
	"debug/elf"
	"encoding/binary"

	"github.com/pkg/errors"

	"ykcfg/sections"
)

// Platform describes the object format of one target: everything the
// backends need to produce an object the target's linker will accept.
type Platform struct {
	OS   string
	Arch string

	// BFDName and BFDArch are the names binutils uses for the output format
	// and the machine
	BFDName string
	BFDArch string

	// Triple is the LLVM target triple
	Triple string

	Class     elf.Class
	Machine   elf.Machine
	ByteOrder binary.ByteOrder

	// ELFFlags is the e_flags value of objects for the target's default ABI
	ELFFlags uint32

	// PointerWidth is the size of a pointer in bytes
	PointerWidth int
}

// Layout returns the section layout of the platform.
func (p *Platform) Layout() sections.Layout {
	return sections.Layout{ByteOrder: p.ByteOrder, PointerWidth: p.PointerWidth}
}

func (p *Platform) String() string {
	return p.OS + "/" + p.Arch
}

var platforms = map[string]*Platform{
	"linux/amd64": {
		OS: "linux", Arch: "amd64",
		BFDName: "elf64-x86-64", BFDArch: "i386",
		Triple: "x86_64-unknown-linux-gnu",
		Class:  elf.ELFCLASS64, Machine: elf.EM_X86_64,
		ByteOrder: binary.LittleEndian, PointerWidth: 8,
	},
	"linux/386": {
		OS: "linux", Arch: "386",
		BFDName: "elf32-i386", BFDArch: "i386",
		Triple: "i686-unknown-linux-gnu",
		Class:  elf.ELFCLASS32, Machine: elf.EM_386,
		ByteOrder: binary.LittleEndian, PointerWidth: 4,
	},
	"linux/arm64": {
		OS: "linux", Arch: "arm64",
		BFDName: "elf64-littleaarch64", BFDArch: "aarch64",
		Triple: "aarch64-unknown-linux-gnu",
		Class:  elf.ELFCLASS64, Machine: elf.EM_AARCH64,
		ByteOrder: binary.LittleEndian, PointerWidth: 8,
	},
	"linux/arm": {
		OS: "linux", Arch: "arm",
		BFDName: "elf32-littlearm", BFDArch: "arm",
		Triple: "armv7-unknown-linux-gnueabihf",
		Class:  elf.ELFCLASS32, Machine: elf.EM_ARM,
		ByteOrder: binary.LittleEndian, PointerWidth: 4,
		ELFFlags: 0x05000400, // EABI version 5, hard float
	},
	"linux/riscv64": {
		OS: "linux", Arch: "riscv64",
		BFDName: "elf64-littleriscv", BFDArch: "riscv",
		Triple: "riscv64-unknown-linux-gnu",
		Class:  elf.ELFCLASS64, Machine: elf.EM_RISCV,
		ByteOrder: binary.LittleEndian, PointerWidth: 8,
		ELFFlags: 0x0005, // RVC, double-float ABI
	},
}

// PlatformFor looks up the platform for a GOOS/GOARCH style pair.
func PlatformFor(goos, goarch string) (*Platform, error) {
	if p, ok := platforms[goos+"/"+goarch]; ok {
		return p, nil
	}

	return nil, errors.Errorf("unsupported target platform `%s/%s`", goos, goarch)
}

// PlatformForMachine finds the platform producing ELF objects of the given
// class and machine.
func PlatformForMachine(class elf.Class, machine elf.Machine) (*Platform, error) {
	for _, p := range platforms {
		if p.Class == class && p.Machine == machine {
			return p, nil
		}
	}

	return nil, errors.Errorf("no platform for %s %s objects", class, machine)
}
