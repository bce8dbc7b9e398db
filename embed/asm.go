package embed

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Assembler embeds the section by generating an assembly file of `.byte`
// directives and assembling it with the C compiler driver.
type Assembler struct {
	// Path is the compiler driver.  It defaults to `cc`.
	Path string

	// Args are passed to the compiler before the input file
	Args []string
}

func (a *Assembler) Name() string {
	return "assembler"
}

func (a *Assembler) Convert(req *Request) error {
	tool := a.Path
	if tool == "" {
		tool = "cc"
	}

	asmFilePath, err := createScratch(".s")
	if err != nil {
		return errors.Wrap(err, "failed to create assembly file")
	}
	defer removeScratch(asmFilePath)

	if err := os.WriteFile(asmFilePath, []byte(sectionAssembly(req)), 0644); err != nil {
		return errors.Wrapf(err, "failed to write assembly file `%s`", asmFilePath)
	}

	args := append([]string{}, a.Args...)
	args = append(args, "-c", "-o", req.Output, asmFilePath)
	return runTool(tool, args...)
}

const bytesPerLine = 16

// sectionAssembly renders the section contents as assembler directives.
func sectionAssembly(req *Request) string {
	var sb strings.Builder

	// `%progbits` rather than `@progbits`: `@` starts a comment on ARM
	fmt.Fprintf(&sb, "\t.section %s,\"a\",%%progbits\n", req.Section)
	fmt.Fprintf(&sb, "\t.globl %s\n", symbolName(req.Section))
	fmt.Fprintf(&sb, "%s:\n", symbolName(req.Section))

	for start := 0; start < len(req.Data); start += bytesPerLine {
		end := start + bytesPerLine
		if end > len(req.Data) {
			end = len(req.Data)
		}

		sb.WriteString("\t.byte ")
		for i, b := range req.Data[start:end] {
			if i > 0 {
				sb.WriteString(", ")
			}

			fmt.Fprintf(&sb, "%d", b)
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
