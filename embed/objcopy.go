package embed

// Objcopy embeds the section with GNU objcopy: the input is read as a raw
// binary whose `.data` section is renamed to the requested section.
type Objcopy struct {
	// Path is the objcopy executable.  It defaults to `objcopy`.
	Path string
}

func (oc *Objcopy) Name() string {
	return "objcopy"
}

func (oc *Objcopy) Convert(req *Request) error {
	tool := oc.Path
	if tool == "" {
		tool = "objcopy"
	}

	return runTool(tool, objcopyArgs(req)...)
}

func objcopyArgs(req *Request) []string {
	return []string{
		"-I", "binary",
		"-O", req.Platform.BFDName,
		"-B", req.Platform.BFDArch,
		"--rename-section", ".data=" + req.Section + ",alloc,load,readonly,data,contents",
		"-j", ".data",
		req.Input,
		req.Output,
	}
}
