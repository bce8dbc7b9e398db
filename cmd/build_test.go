package cmd

import (
	"debug/elf"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ykcfg/common"
	"ykcfg/mir"
	"ykcfg/profile"
	"ykcfg/sections/mircfg"
	"ykcfg/sections/unitmap"
)

const fixtureSrc = `
units:
  - name: app
    hash: 0xa99
    definitions:
      - index: 0
        root: true
        blocks:
          - kind: call
            callee: {unit: app, index: 1}
            cleanup: 1
          - kind: resume
      - index: 1
        body: false
`

func writeFixtureProject(t *testing.T, format, extra string) string {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(fixtureSrc), 0644); err != nil {
		t.Fatal(err)
	}

	proj := `
[project]
name = "app"
host = "fixture"
inputs = ["app.yaml"]
ykcfg-version = "` + common.YkVersion + `"

[[profiles]]
name = "debug"
target-os = "linux"
target-arch = "amd64"
debug-sections = true
embedder = "elf"
output = "out"
format = "` + format + `"
default = true
` + extra

	if err := os.WriteFile(filepath.Join(dir, common.ProjectFileName), []byte(proj), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestBuildObjects(t *testing.T) {
	dir := writeFixtureProject(t, "obj", "")

	proj, prof, err := profile.LoadProject(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := buildProject(proj, prof); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "out", "yk_mir_cfg.o")
	f, err := elf.Open(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	data, err := f.Section(common.MirCfgSectionName).Data()
	if err != nil {
		t.Fatal(err)
	}

	edges, err := mircfg.Decode(data, prof.Platform.Layout())
	if err != nil {
		t.Fatal(err)
	}

	mainFn := mir.DefID{Unit: 0xa99, Index: 0}
	callee := mir.DefID{Unit: 0xa99, Index: 1}
	want := []mircfg.Edge{
		{Src: mir.Location{Def: mainFn, Block: 0}, Kind: mircfg.KindCall, Callee: &callee, Secondary: mir.BlockRef(1)},
		{Src: mir.Location{Def: mainFn, Block: 1}, Kind: mircfg.KindResume},
		mircfg.NoBodyEdge(callee),
	}
	if diff := cmp.Diff(want, edges); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	m, err := elf.Open(filepath.Join(dir, "out", "yk_unit_map.o"))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	mapData, err := m.Section(common.UnitMapSectionName).Data()
	if err != nil {
		t.Fatal(err)
	}
	_, units, err := unitmap.Decode(mapData, prof.Platform.Layout())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]mir.Unit{{Name: "app", Hash: 0xa99}}, units); diff != "" {
		t.Errorf("unit map mismatch (-want +got):\n%s", diff)
	}

	if err := dumpFile(cfgPath, false, ""); err != nil {
		t.Errorf("dumpFile() failed on the produced object: %v", err)
	}

	raw := filepath.Join(t.TempDir(), "section.bin")
	if err := os.WriteFile(raw, data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := dumpFile(raw, true, "amd64"); err != nil {
		t.Errorf("dumpFile() failed on the raw section: %v", err)
	}
}

func TestBuildLinks(t *testing.T) {
	tool, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no `true` command")
	}

	dir := writeFixtureProject(t, "bin", "linker = \""+tool+"\"\n")

	proj, prof, err := profile.LoadProject(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := buildProject(proj, prof); err != nil {
		t.Fatal(err)
	}
}

func TestBuildDisabledSkipsLoading(t *testing.T) {
	tool, err := exec.LookPath("true")
	if err != nil {
		t.Skip("no `true` command")
	}

	dir := writeFixtureProject(t, "bin", "linker = \""+tool+"\"\n")

	// the fixture would fail to load; a disabled export never reads it
	if err := os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("units: [{"), 0644); err != nil {
		t.Fatal(err)
	}

	proj, prof, err := profile.LoadProject(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	prof.DebugSections = false

	if err := buildProject(proj, prof); err != nil {
		t.Fatal(err)
	}
}

func TestDumpRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk")
	if err := os.WriteFile(path, []byte("not an object"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := dumpFile(path, false, ""); err == nil {
		t.Errorf("dumpFile() accepted a file that is not an object")
	}
	if err := dumpFile(path, true, "amd64"); err == nil {
		t.Errorf("dumpFile() accepted a raw section without a sentinel")
	}
	if err := dumpFile(path, true, "mips"); err == nil {
		t.Errorf("dumpFile() accepted an unsupported architecture")
	}
}
