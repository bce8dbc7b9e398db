package profile

import (
	"runtime"

	"ykcfg/embed"
)

// Project represents a project: the program whose CFG is exported and the
// profiles it can be built with.
type Project struct {
	// Name is the name of the project
	Name string

	// Root is the path to the directory holding the project file
	Root string

	// Host selects how the program is read: `gossa` loads Go packages,
	// `fixture` reads YAML CFG descriptions
	Host string

	// Inputs are the Go package patterns or fixture files to load.  Fixture
	// paths are absolute.
	Inputs []string
}

// BuildProfile represents the profile the exporter will use to build -- it is
// returned from `LoadProject`.
type BuildProfile struct {
	// Name is the name of the profile
	Name string

	// Platform is the target platform of the objects produced
	Platform *embed.Platform

	// DebugSections enables the CFG export.  When it is false the build only
	// runs the link command.
	DebugSections bool

	// Embedder names the backend used to produce objects: `objcopy`, `llc`,
	// `cc` or `elf`.  Tool overrides the path of its external tool.
	Embedder string
	Tool     string

	// OutputPath is the absolute path to the final output file
	OutputPath string

	// OutputFormat is the kind of output the build should produce.  This
	// should be one of the enumerated formats (prefixed `Format`).
	OutputFormat int

	// Linker is the link command.  LinkArgs are passed to it before the
	// objects and LinkObjects (absolute paths) after the exported objects.
	Linker      string
	LinkArgs    []string
	LinkObjects []string

	// Workers bounds the number of definitions encoded concurrently
	Workers int
}

// Available Output Formats
const (
	FormatBin    = iota // Executable linked with the exported objects
	FormatObject        // The exported objects only
)

// Available embedders
const (
	EmbedderObjcopy = "objcopy"
	EmbedderLLC     = "llc"
	EmbedderCC      = "cc"
	EmbedderELF     = "elf"
)

// Available hosts
const (
	HostGoSSA   = "gossa"
	HostFixture = "fixture"
)

// Backend returns the embedding backend selected by the profile.
func (bp *BuildProfile) Backend() embed.Backend {
	switch bp.Embedder {
	case EmbedderObjcopy:
		return &embed.Objcopy{Path: bp.Tool}
	case EmbedderLLC:
		return &embed.LLC{Path: bp.Tool}
	case EmbedderCC:
		return &embed.Assembler{Path: bp.Tool}
	default:
		return embed.ELF{}
	}
}

// defaultWorkers is the worker count used when a profile does not set one
func defaultWorkers() int {
	return runtime.NumCPU()
}

// IsValidIdentifier returns whether or not a given string would be a valid
// identifier (project name, profile name, etc.)
func IsValidIdentifier(idstr string) bool {
	if idstr == "" {
		return false
	}

	if idstr[0] == '_' || ('a' <= idstr[0] && idstr[0] <= 'z') || ('A' <= idstr[0] && idstr[0] <= 'Z') {
		for _, c := range idstr[1:] {
			if c == '_' || c == '-' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
				continue
			}

			return false
		}

		return true
	}

	return false
}
