package errmeta

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
)

type (
	// ModuleError is the human readable form of an on-chain module error
	ModuleError struct {
		Section string
		Name    string
		Docs    string
	}

	// Registry resolves module error codes against chain metadata
	Registry interface {
		DecodeModuleError(moduleIndex, errorIndex int) (ModuleError, bool)
	}

	moduleEntry struct {
		Index  int     `json:"index"`
		Name   string  `json:"name"`
		Errors []entry `json:"errors"`
	}

	entry struct {
		Name string `json:"name"`
		Docs string `json:"docs"`
	}

	registryFile struct {
		Modules []moduleEntry `json:"modules"`
	}

	fileRegistry struct {
		modules map[int]moduleEntry
	}
)

// LoadRegistry reads a module error registry from a JSON file generated from
// chain metadata
func LoadRegistry(path string) (Registry, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read error registry file: %w", err)
	}

	var parsed registryFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse error registry file: %w", err)
	}

	modules := make(map[int]moduleEntry, len(parsed.Modules))
	for _, module := range parsed.Modules {
		modules[module.Index] = module
	}
	return &fileRegistry{modules: modules}, nil
}

func (r *fileRegistry) DecodeModuleError(moduleIndex, errorIndex int) (ModuleError, bool) {
	module, ok := r.modules[moduleIndex]
	if !ok {
		return ModuleError{}, false
	}
	if errorIndex < 0 || errorIndex >= len(module.Errors) {
		return ModuleError{}, false
	}
	moduleError := module.Errors[errorIndex]
	return ModuleError{
		Section: module.Name,
		Name:    moduleError.Name,
		Docs:    moduleError.Docs,
	}, true
}
