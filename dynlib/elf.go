package dynlib

import (
	"bytes"
	"debug/elf"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// STT_GNU_IFUNC shares its value with STT_LOOS.
const sttGNUIFunc = elf.STT_LOOS

// Export is a defined symbol in a library's dynamic symbol table.
type Export struct {
	Name   string
	IsFunc bool
}

// ValidateELF checks that data is an ELF shared object for the host
// architecture.
func ValidateELF(data []byte) error {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid ELF image: %w", err)
	}
	defer f.Close()

	machine, err := currentELFMachine()
	if err != nil {
		return err
	}
	if f.Machine != machine {
		return fmt.Errorf("foreign platform (provided: %s, expected: %s)", f.Machine, machine)
	}
	if f.Type != elf.ET_DYN {
		return fmt.Errorf("unsupported ELF file type: %s", f.Type)
	}
	return nil
}

// InspectExports lists the defined global and weak symbols exported by the
// ELF shared object at path, sorted by name.
func InspectExports(path string) ([]Export, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf %s: %w", path, err)
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if err != nil {
		return nil, fmt.Errorf("read dynamic symbols of %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(syms))
	exports := make([]Export, 0, len(syms))
	for _, s := range syms {
		if s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		switch elf.ST_BIND(s.Info) {
		case elf.STB_GLOBAL, elf.STB_WEAK:
		default:
			continue
		}
		name, _, _ := strings.Cut(s.Name, "@")
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		typ := elf.ST_TYPE(s.Info)
		exports = append(exports, Export{
			Name:   name,
			IsFunc: typ == elf.STT_FUNC || typ == sttGNUIFunc,
		})
	}

	sort.Slice(exports, func(i, j int) bool { return exports[i].Name < exports[j].Name })
	return exports, nil
}

func currentELFMachine() (elf.Machine, error) {
	switch runtime.GOARCH {
	case "amd64":
		return elf.EM_X86_64, nil
	case "arm64":
		return elf.EM_AARCH64, nil
	default:
		return 0, fmt.Errorf("unsupported architecture: %s", runtime.GOARCH)
	}
}
