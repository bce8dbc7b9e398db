package profile

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"ykcfg/common"
	"ykcfg/embed"
)

const projectFile = `
[project]
name = "hello"
host = "fixture"
inputs = ["cfg/hello.yaml"]
ykcfg-version = "` + common.YkVersion + `"

[[profiles]]
name = "debug"
target-os = "linux"
target-arch = "amd64"
debug-sections = true
embedder = "objcopy"
output = "bin/hello"
format = "bin"
link-args = ["-static"]
link-objects = ["lib/rt.o", "/opt/yk/crt.o"]
workers = 3
default = true

[[profiles]]
name = "arm"
target-os = "linux"
target-arch = "arm64"
output = "out"
format = "obj"
`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, common.ProjectFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadDefaultProfile(t *testing.T) {
	dir := writeProject(t, projectFile)

	proj, prof, err := LoadProject(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	wantProj := &Project{
		Name:   "hello",
		Root:   dir,
		Host:   HostFixture,
		Inputs: []string{filepath.Join(dir, "cfg/hello.yaml")},
	}
	if diff := cmp.Diff(wantProj, proj); diff != "" {
		t.Errorf("project mismatch (-want +got):\n%s", diff)
	}

	amd64, _ := embed.PlatformFor("linux", "amd64")
	wantProf := &BuildProfile{
		Name:          "debug",
		Platform:      amd64,
		DebugSections: true,
		Embedder:      EmbedderObjcopy,
		OutputPath:    filepath.Join(dir, "bin/hello"),
		OutputFormat:  FormatBin,
		Linker:        "cc",
		LinkArgs:      []string{"-static"},
		LinkObjects:   []string{filepath.Join(dir, "lib/rt.o"), "/opt/yk/crt.o"},
		Workers:       3,
	}
	if diff := cmp.Diff(wantProf, prof, cmpopts.IgnoreFields(embed.Platform{}, "ByteOrder")); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}

	if _, ok := prof.Backend().(*embed.Objcopy); !ok {
		t.Errorf("Backend() = %T, want *embed.Objcopy", prof.Backend())
	}
}

func TestLoadSelectedProfile(t *testing.T) {
	dir := writeProject(t, projectFile)

	_, prof, err := LoadProject(dir, "arm")
	if err != nil {
		t.Fatal(err)
	}

	if prof.DebugSections {
		t.Errorf("debug-sections defaulted to true")
	}
	if prof.Platform.Arch != "arm64" || prof.OutputFormat != FormatObject {
		t.Errorf("selected profile = %+v", prof)
	}
	if prof.Embedder != EmbedderELF {
		t.Errorf("embedder = %s, want the %s default", prof.Embedder, EmbedderELF)
	}
	if prof.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d, want %d", prof.Workers, runtime.NumCPU())
	}
	if _, ok := prof.Backend().(embed.ELF); !ok {
		t.Errorf("Backend() = %T, want embed.ELF", prof.Backend())
	}
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		content  string
		selected string
		want     string
	}{
		{
			name:     "unknown profile",
			content:  projectFile,
			selected: "release",
			want:     "has no profile `release`",
		},
		{
			name:    "no project table",
			content: "[[profiles]]\nname = \"x\"\n",
			want:    "missing [project] table",
		},
		{
			name:    "bad host",
			content: "[project]\nname = \"p\"\nhost = \"rustc\"\ninputs = [\"x\"]\n",
			want:    "not a supported host",
		},
		{
			name:    "no inputs",
			content: "[project]\nname = \"p\"\nhost = \"gossa\"\n",
			want:    "at least one input",
		},
		{
			name:    "no profiles",
			content: "[project]\nname = \"p\"\nhost = \"gossa\"\ninputs = [\"./...\"]\n",
			want:    "at least one build profile",
		},
		{
			name: "no default",
			content: "[project]\nname = \"p\"\nhost = \"gossa\"\ninputs = [\"./...\"]\n" +
				"[[profiles]]\nname = \"a\"\n[[profiles]]\nname = \"b\"\n",
			want: "does not specify a default profile",
		},
		{
			name: "unsupported target",
			content: "[project]\nname = \"p\"\nhost = \"gossa\"\ninputs = [\"./...\"]\n" +
				"[[profiles]]\nname = \"a\"\ntarget-os = \"plan9\"\ntarget-arch = \"mips\"\noutput = \"o\"\nformat = \"bin\"\n",
			want: "unsupported target platform",
		},
		{
			name: "bad embedder",
			content: "[project]\nname = \"p\"\nhost = \"gossa\"\ninputs = [\"./...\"]\n" +
				"[[profiles]]\nname = \"a\"\ntarget-os = \"linux\"\ntarget-arch = \"amd64\"\noutput = \"o\"\nformat = \"bin\"\nembedder = \"nasm\"\n",
			want: "not a supported embedder",
		},
		{
			name: "bad format",
			content: "[project]\nname = \"p\"\nhost = \"gossa\"\ninputs = [\"./...\"]\n" +
				"[[profiles]]\nname = \"a\"\ntarget-os = \"linux\"\ntarget-arch = \"amd64\"\noutput = \"o\"\nformat = \"dll\"\n",
			want: "not a valid output format",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeProject(t, tc.content)

			_, _, err := LoadProject(dir, tc.selected)
			if err == nil {
				t.Fatalf("LoadProject() succeeded, want error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("LoadProject() error = %q, want it to contain %q", err, tc.want)
			}
		})
	}
}

func TestCCFromEnvironment(t *testing.T) {
	t.Setenv("CC", "/usr/bin/clang")

	dir := writeProject(t, "[project]\nname = \"p\"\nhost = \"gossa\"\ninputs = [\"./...\"]\n"+
		"[[profiles]]\nname = \"a\"\ntarget-os = \"linux\"\ntarget-arch = \"amd64\"\noutput = \"o\"\nformat = \"obj\"\nembedder = \"cc\"\n"+
		"[[profiles]]\nname = \"b\"\ntarget-os = \"linux\"\ntarget-arch = \"amd64\"\noutput = \"o\"\nformat = \"obj\"\nembedder = \"cc\"\ntool = \"gcc\"\ndefault = true\n")

	_, prof, err := LoadProject(dir, "a")
	if err != nil {
		t.Fatal(err)
	}
	if prof.Tool != "/usr/bin/clang" {
		t.Errorf("tool = %q, want $CC", prof.Tool)
	}

	_, prof, err = LoadProject(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if prof.Tool != "gcc" {
		t.Errorf("tool = %q, want the explicit gcc", prof.Tool)
	}
	if asm, ok := prof.Backend().(*embed.Assembler); !ok || asm.Path != "gcc" {
		t.Errorf("Backend() = %#v, want an assembler running gcc", prof.Backend())
	}
}

func TestInitProject(t *testing.T) {
	if _, err := embed.PlatformFor(runtime.GOOS, runtime.GOARCH); err != nil {
		t.Skip(err)
	}

	dir := t.TempDir()
	if err := InitProject("demo", dir, HostGoSSA); err != nil {
		t.Fatal(err)
	}

	proj, prof, err := LoadProject(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"./..."}, proj.Inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
	if prof.Name != "debug" || !prof.DebugSections {
		t.Errorf("default profile = %s (debug-sections %v), want debug with debug-sections", prof.Name, prof.DebugSections)
	}
	if prof.OutputPath != filepath.Join(dir, "bin", "demo_debug") {
		t.Errorf("output = %s", prof.OutputPath)
	}

	_, prof, err = LoadProject(dir, "release")
	if err != nil {
		t.Fatal(err)
	}
	if prof.DebugSections {
		t.Errorf("release profile exports CFG sections")
	}

	if err := InitProject("demo", dir, HostGoSSA); err == nil {
		t.Errorf("InitProject() overwrote an existing project")
	}
}

func TestInitProjectRejects(t *testing.T) {
	dir := t.TempDir()
	if err := InitProject("9lives", dir, HostGoSSA); err == nil {
		t.Errorf("InitProject() accepted an invalid name")
	}
	if err := InitProject("demo", dir, "rustc"); err == nil {
		t.Errorf("InitProject() accepted an unknown host")
	}
	if _, err := os.Stat(filepath.Join(dir, common.ProjectFileName)); !os.IsNotExist(err) {
		t.Errorf("a rejected init left a project file behind")
	}
}
