package materials

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"planforge/core"
)

//go:embed default_materials.yaml
var defaultLibraryYAML []byte

// libraryFile is the YAML document shape of a material library.
type libraryFile struct {
	Materials []Material `yaml:"materials"`
}

// Library is the read-only keyed collection of materials, loaded once at
// startup. The applicator never writes to it.
type Library struct {
	byName map[string]Material
	names  []string
}

// NewLibrary loads a material library from the YAML file at path. An empty
// path loads the embedded default library.
func NewLibrary(path string) (*Library, error) {
	data := defaultLibraryYAML
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, core.ErrLibraryUnreadable(path, err.Error())
		}
		data = fileData
	}
	return parseLibrary(data, path)
}

func parseLibrary(data []byte, path string) (*Library, error) {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, core.ErrLibraryUnreadable(path, fmt.Sprintf("invalid YAML: %v", err))
	}
	if len(file.Materials) == 0 {
		return nil, core.ErrLibraryUnreadable(path, "library defines no materials")
	}

	lib := &Library{byName: make(map[string]Material, len(file.Materials))}
	for _, m := range file.Materials {
		if err := m.Validate(); err != nil {
			return nil, core.ErrLibraryUnreadable(path, err.Error())
		}
		if _, dup := lib.byName[m.Name]; dup {
			return nil, core.ErrLibraryUnreadable(path, fmt.Sprintf("duplicate material %q", m.Name))
		}
		lib.byName[m.Name] = m
		lib.names = append(lib.names, m.Name)
	}
	sort.Strings(lib.names)
	return lib, nil
}

// Get returns a copy of the named material.
func (l *Library) Get(name string) (Material, bool) {
	m, ok := l.byName[name]
	return m, ok
}

// Names returns the library keys in sorted order.
func (l *Library) Names() []string {
	return append([]string(nil), l.names...)
}

// Len returns the number of materials in the library.
func (l *Library) Len() int {
	return len(l.byName)
}
