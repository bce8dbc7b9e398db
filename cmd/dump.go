package cmd

import (
	"debug/elf"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"ykcfg/common"
	"ykcfg/embed"
	"ykcfg/logging"
	"ykcfg/sections"
	"ykcfg/sections/mircfg"
	"ykcfg/sections/unitmap"
)

// dumpFile prints the CFG records held by an object file or, with raw, by a
// file holding only the section bytes.
func dumpFile(path string, raw bool, arch string) error {
	if raw {
		p, err := embed.PlatformFor("linux", arch)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		return dumpCFG(data, p.Layout())
	}

	f, err := elf.Open(path)
	if err != nil {
		return errors.Wrapf(err, "reading object `%s`", path)
	}
	defer f.Close()

	p, err := embed.PlatformForMachine(f.Class, f.Machine)
	if err != nil {
		return err
	}

	layout := sections.Layout{ByteOrder: f.ByteOrder, PointerWidth: p.PointerWidth}

	found := false
	if sec := f.Section(common.UnitMapSectionName); sec != nil {
		data, err := sec.Data()
		if err != nil {
			return err
		}

		if err := dumpUnitMap(data, layout); err != nil {
			return err
		}

		found = true
	}

	if sec := f.Section(common.MirCfgSectionName); sec != nil {
		data, err := sec.Data()
		if err != nil {
			return err
		}

		if err := dumpCFG(data, layout); err != nil {
			return err
		}

		found = true
	}

	if !found {
		return errors.Errorf("`%s` has neither a %s nor a %s section", path, common.MirCfgSectionName, common.UnitMapSectionName)
	}

	return nil
}

func dumpCFG(data []byte, layout sections.Layout) error {
	edges, err := mircfg.Decode(data, layout)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(edges))
	for i, e := range edges {
		tag, err := e.Tag()
		if err != nil {
			return err
		}

		rows = append(rows, []string{fmt.Sprint(i), tag.String(), e.String()})
	}

	logging.PrintInfoMessage(common.MirCfgSectionName, fmt.Sprintf("%d records, %d bytes", len(edges), len(data)))
	return logging.PrintTable([]string{"#", "Tag", "Edge"}, rows)
}

func dumpUnitMap(data []byte, layout sections.Layout) error {
	version, units, err := unitmap.Decode(data, layout)
	if err != nil {
		return err
	}

	if version != mircfg.FormatVersion {
		logging.PrintWarningMessage("Version", fmt.Sprintf("unit map was written for format v%d, this is v%d", version, mircfg.FormatVersion))
	}

	rows := make([][]string, 0, len(units))
	for _, u := range units {
		rows = append(rows, []string{fmt.Sprintf("%016x", uint64(u.Hash)), u.Name})
	}

	logging.PrintInfoMessage(common.UnitMapSectionName, fmt.Sprintf("%d units", len(units)))
	return logging.PrintTable([]string{"Hash", "Unit"}, rows)
}
