package embed

import (
	"os"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/pkg/errors"
)

// LLC embeds the section by generating an LLVM module holding one constant
// global placed in the section and compiling it with llc.
type LLC struct {
	// Path is the llc executable.  It defaults to `llc`.
	Path string
}

func (l *LLC) Name() string {
	return "llc"
}

func (l *LLC) Convert(req *Request) error {
	tool := l.Path
	if tool == "" {
		tool = "llc"
	}

	modFilePath, err := createScratch(".ll")
	if err != nil {
		return errors.Wrap(err, "failed to create LLVM module file")
	}
	defer removeScratch(modFilePath)

	mod := sectionModule(req)
	if err := os.WriteFile(modFilePath, []byte(mod.String()), 0644); err != nil {
		return errors.Wrapf(err, "failed to write LLVM module `%s`", modFilePath)
	}

	return runTool(tool, "-filetype=obj", "-mtriple="+req.Platform.Triple, "-o", req.Output, modFilePath)
}

// sectionModule builds the LLVM module carrying the section contents.
func sectionModule(req *Request) *ir.Module {
	mod := ir.NewModule()
	mod.SourceFilename = req.Section
	mod.TargetTriple = req.Platform.Triple

	glob := mod.NewGlobalDef(symbolName(req.Section), constant.NewCharArray(req.Data))
	glob.Immutable = true
	glob.Section = req.Section

	return mod
}

// symbolName derives the name of the global holding a section from the
// section name: `.yk_mir_cfg` becomes `__yk_mir_cfg`.
func symbolName(section string) string {
	var sb strings.Builder
	sb.WriteString("__")

	for _, c := range strings.TrimPrefix(section, ".") {
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			sb.WriteRune(c)
		} else {
			sb.WriteRune('_')
		}
	}

	return sb.String()
}
