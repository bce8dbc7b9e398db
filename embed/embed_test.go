package embed

import (
	"bytes"
	"debug/elf"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

var payload = []byte{0x00, 0x01, 0x02, 0xfe, 0xff, 'y', 'k'}

func scratchCount() int {
	scratch.m.Lock()
	defer scratch.m.Unlock()
	return len(scratch.paths)
}

// writeScript writes an executable shell script standing in for a tool.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// checkObject opens an object and checks it carries payload in an allocated,
// read-only section.
func checkObject(t *testing.T, path, section string, p *Platform) {
	t.Helper()

	f, err := elf.Open(path)
	if err != nil {
		t.Fatalf("elf.Open(%s): %v", path, err)
	}
	defer f.Close()

	if f.Type != elf.ET_REL {
		t.Errorf("object type = %s, want ET_REL", f.Type)
	}
	if f.Class != p.Class || f.Machine != p.Machine {
		t.Errorf("object is %s %s, want %s %s", f.Class, f.Machine, p.Class, p.Machine)
	}

	sec := f.Section(section)
	if sec == nil {
		t.Fatalf("object has no section %s", section)
	}
	if sec.Flags&elf.SHF_ALLOC == 0 || sec.Flags&elf.SHF_WRITE != 0 {
		t.Errorf("section flags = %s, want allocated and read-only", sec.Flags)
	}

	data, err := sec.Data()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("section data = %x, want %x", data, payload)
	}
}

func TestELFBackend(t *testing.T) {
	for name, p := range platforms {
		t.Run(name, func(t *testing.T) {
			obj, err := Embed(payload, ".yk_mir_cfg", p, ELF{})
			if err != nil {
				t.Fatal(err)
			}
			defer obj.Release()

			checkObject(t, obj.Path(), ".yk_mir_cfg", p)

			f, err := elf.Open(obj.Path())
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			syms, err := f.Symbols()
			if err != nil {
				t.Fatal(err)
			}

			var globals []string
			for _, s := range syms {
				if elf.ST_BIND(s.Info) == elf.STB_GLOBAL {
					globals = append(globals, s.Name)
					if s.Size != uint64(len(payload)) {
						t.Errorf("symbol %s has size %d, want %d", s.Name, s.Size, len(payload))
					}
				}
			}
			if diff := cmp.Diff([]string{"__yk_mir_cfg"}, globals); diff != "" {
				t.Errorf("global symbols mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmptySection(t *testing.T) {
	p, _ := PlatformFor("linux", "amd64")
	obj, err := Embed(nil, ".yk_unit_map", p, ELF{})
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Release()

	f, err := elf.Open(obj.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if sec := f.Section(".yk_unit_map"); sec == nil || sec.Size != 0 {
		t.Errorf("want an empty .yk_unit_map section, got %v", sec)
	}
}

func TestRelease(t *testing.T) {
	p, _ := PlatformFor("linux", "amd64")
	before := scratchCount()

	obj, err := Embed(payload, ".yk_mir_cfg", p, ELF{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(obj.Path()); err != nil {
		t.Fatalf("object does not exist before release: %v", err)
	}
	if got := scratchCount(); got != before+1 {
		t.Errorf("scratch count = %d, want only the object registered", got-before)
	}

	if err := obj.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(obj.Path()); !os.IsNotExist(err) {
		t.Errorf("object still exists after release: %v", err)
	}
	if err := obj.Release(); err != nil {
		t.Errorf("second release failed: %v", err)
	}
	if got := scratchCount(); got != before {
		t.Errorf("scratch paths left after release: %d", got-before)
	}
}

func TestRemoveScratch(t *testing.T) {
	p, _ := PlatformFor("linux", "amd64")
	obj, err := Embed(payload, ".yk_mir_cfg", p, ELF{})
	if err != nil {
		t.Fatal(err)
	}

	RemoveScratch()

	if _, err := os.Stat(obj.Path()); !os.IsNotExist(err) {
		t.Errorf("object still exists after RemoveScratch: %v", err)
	}
	if err := obj.Release(); err != nil {
		t.Errorf("release after RemoveScratch failed: %v", err)
	}
}

func TestToolFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	tool := writeScript(t, `echo "objcopy: $4: invalid bfd target" >&2
echo "partial" > "${12}"
exit 1`)

	p, _ := PlatformFor("linux", "amd64")
	before := scratchCount()

	obj, err := Embed(payload, ".yk_mir_cfg", p, &Objcopy{Path: tool})
	if obj != nil {
		t.Errorf("Embed() returned an object on failure")
	}

	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("Embed() error = %v, want a *ToolError", err)
	}

	if te.Tool != tool {
		t.Errorf("ToolError.Tool = %s, want %s", te.Tool, tool)
	}
	if want := "objcopy: elf64-x86-64: invalid bfd target"; !strings.Contains(te.Output, want) {
		t.Errorf("ToolError.Output = %q, want it to contain %q", te.Output, want)
	}
	if _, ok := te.Err.(*exec.ExitError); !ok {
		t.Errorf("ToolError.Err = %T, want *exec.ExitError", te.Err)
	}
	if !strings.Contains(err.Error(), "invalid bfd target") {
		t.Errorf("error text %q does not carry the tool output", err)
	}

	if got := scratchCount(); got != before {
		t.Errorf("%d scratch paths left after a failed embed", got-before)
	}
}

func TestToolNotFound(t *testing.T) {
	p, _ := PlatformFor("linux", "amd64")

	_, err := Embed(payload, ".yk_mir_cfg", p, &LLC{Path: filepath.Join(t.TempDir(), "no-such-llc")})

	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("Embed() error = %v, want a *ToolError", err)
	}
	if _, ok := te.Err.(*exec.ExitError); ok {
		t.Errorf("a missing tool reported an exit status")
	}
}

// failingBackend writes part of an object and then fails.
type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }

func (failingBackend) Convert(req *Request) error {
	os.WriteFile(req.Output, []byte("partial"), 0644)
	return errors.New("conversion failed")
}

func TestFailureRemovesOutput(t *testing.T) {
	p, _ := PlatformFor("linux", "amd64")
	before := scratchCount()

	var output string
	backend := backendFunc(func(req *Request) error {
		output = req.Output
		return failingBackend{}.Convert(req)
	})

	if _, err := Embed(payload, ".yk_mir_cfg", p, backend); err == nil {
		t.Fatal("Embed() succeeded with a failing backend")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("partial output %s was left behind", output)
	}
	if got := scratchCount(); got != before {
		t.Errorf("%d scratch paths left after a failed embed", got-before)
	}
}

type backendFunc func(req *Request) error

func (backendFunc) Name() string                 { return "func" }
func (f backendFunc) Convert(req *Request) error { return f(req) }

func TestInputRemoved(t *testing.T) {
	p, _ := PlatformFor("linux", "amd64")

	var input string
	backend := backendFunc(func(req *Request) error {
		input = req.Input

		data, err := os.ReadFile(req.Input)
		if err != nil {
			return err
		}
		if !bytes.Equal(data, req.Data) {
			return errors.New("input file does not hold the section data")
		}

		return ELF{}.Convert(req)
	})

	obj, err := Embed(payload, ".yk_mir_cfg", p, backend)
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Release()

	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Errorf("input %s was left behind", input)
	}
}

func TestObjcopyArgs(t *testing.T) {
	p, _ := PlatformFor("linux", "arm64")
	req := &Request{Input: "in.bin", Output: "in.bin.o", Section: ".yk_mir_cfg", Platform: p}

	want := []string{
		"-I", "binary",
		"-O", "elf64-littleaarch64",
		"-B", "aarch64",
		"--rename-section", ".data=.yk_mir_cfg,alloc,load,readonly,data,contents",
		"-j", ".data",
		"in.bin", "in.bin.o",
	}
	if diff := cmp.Diff(want, objcopyArgs(req)); diff != "" {
		t.Errorf("objcopyArgs() mismatch (-want +got):\n%s", diff)
	}
}

func TestObjcopy(t *testing.T) {
	if _, err := exec.LookPath("objcopy"); err != nil {
		t.Skip("objcopy not installed")
	}

	p, _ := PlatformFor("linux", "amd64")
	obj, err := Embed(payload, ".yk_mir_cfg", p, &Objcopy{})
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Release()

	checkObject(t, obj.Path(), ".yk_mir_cfg", p)
}

func TestSectionModule(t *testing.T) {
	p, _ := PlatformFor("linux", "amd64")
	text := sectionModule(&Request{Data: []byte{1, 2, 3}, Section: ".yk_mir_cfg", Platform: p}).String()

	for _, want := range []string{
		`target triple = "x86_64-unknown-linux-gnu"`,
		`@__yk_mir_cfg = constant [3 x i8]`,
		`section ".yk_mir_cfg"`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("LLVM module does not contain %q:\n%s", want, text)
		}
	}
}

func TestLLC(t *testing.T) {
	if _, err := exec.LookPath("llc"); err != nil {
		t.Skip("llc not installed")
	}

	p, _ := PlatformFor("linux", "amd64")
	obj, err := Embed(payload, ".yk_mir_cfg", p, &LLC{})
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Release()

	checkObject(t, obj.Path(), ".yk_mir_cfg", p)
}

func TestSectionAssembly(t *testing.T) {
	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i)
	}

	got := sectionAssembly(&Request{Data: data, Section: ".yk_mir_cfg"})
	want := "\t.section .yk_mir_cfg,\"a\",%progbits\n" +
		"\t.globl __yk_mir_cfg\n" +
		"__yk_mir_cfg:\n" +
		"\t.byte 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15\n" +
		"\t.byte 16, 17\n"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sectionAssembly() mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembler(t *testing.T) {
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("cc not installed")
	}

	p, err := PlatformFor(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		t.Skip(err)
	}

	obj, err := Embed(payload, ".yk_mir_cfg", p, &Assembler{})
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Release()

	checkObject(t, obj.Path(), ".yk_mir_cfg", p)
}

func TestSymbolName(t *testing.T) {
	for section, want := range map[string]string{
		".yk_mir_cfg":  "__yk_mir_cfg",
		"yk.unit-map":  "__yk_unit_map",
		".yk_unit_map": "__yk_unit_map",
	} {
		if got := symbolName(section); got != want {
			t.Errorf("symbolName(%q) = %q, want %q", section, got, want)
		}
	}
}

func TestPlatformFor(t *testing.T) {
	p, err := PlatformFor("linux", "386")
	if err != nil {
		t.Fatal(err)
	}
	if p.PointerWidth != 4 || p.Class != elf.ELFCLASS32 {
		t.Errorf("linux/386 = %+v", p)
	}

	if _, err := PlatformFor("plan9", "mips"); err == nil {
		t.Errorf("PlatformFor(plan9, mips) succeeded")
	}

	q, err := PlatformForMachine(elf.ELFCLASS64, elf.EM_AARCH64)
	if err != nil || q.Arch != "arm64" {
		t.Errorf("PlatformForMachine(ELFCLASS64, EM_AARCH64) = %v, %v", q, err)
	}
}

func TestEmbedRejectsBadInput(t *testing.T) {
	p, _ := PlatformFor("linux", "amd64")
	if _, err := Embed(payload, "", p, ELF{}); err == nil {
		t.Errorf("Embed() accepted an empty section name")
	}
	if _, err := Embed(payload, ".yk_mir_cfg", nil, ELF{}); err == nil {
		t.Errorf("Embed() accepted a nil platform")
	}
}
