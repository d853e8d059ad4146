package configs

import (
	"errors"

	"github.com/reusee/luautil/luavm"
)

// AssignGlobals copies the fields of a config section into VM globals. A
// missing section is not an error; a field the VM cannot represent is.
func AssignGlobals(loader Loader, path string, vm *luavm.VM) error {
	var values map[string]any
	if err := loader.AssignFirst(path, &values); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return nil
		}
		return err
	}
	for name, value := range values {
		if err := vm.SetGlobal(name, value); err != nil {
			return err
		}
	}
	return nil
}
