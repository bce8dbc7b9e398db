package common

const (
	// ProjectFileName is the name of the project file read by `ykcfg build`.
	ProjectFileName = "yk-build.toml"

	// YkVersion is the version of the ykcfg tool.
	YkVersion = "0.2.0"

	// MirCfgSectionName is the name of the section holding the encoded CFG.
	MirCfgSectionName = ".yk_mir_cfg"

	// UnitMapSectionName is the name of the section mapping unit hashes to
	// unit names.
	UnitMapSectionName = ".yk_unit_map"

	// ScratchPrefix prefixes every temporary file created while embedding.
	ScratchPrefix = ".ykcfg."
)
