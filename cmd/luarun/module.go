package main

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/dscope"
	"github.com/reusee/luautil/configs"
	"github.com/reusee/luautil/logs"
	"github.com/reusee/luautil/luavm"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}

//go:embed schema.cue
var schema string

func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {

	var paths []string
	defer func() {
		if len(paths) > 0 {
			logger.Info("config file",
				"paths", paths,
			)
		}
	}()

	filenames := []string{
		"luarun.cue",
		".luarun.cue",
	}

	// working directory
	workingDir, err := os.Getwd()
	if err == nil {
		for _, filename := range filenames {
			path := filepath.Join(workingDir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}

	// user config dir
	configDir, err := os.UserConfigDir()
	if err == nil {
		for _, filename := range filenames {
			path := filepath.Join(configDir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}

	// system wide dir
	for _, filename := range filenames {
		path := filepath.Join("/etc", filename)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}

	return configs.NewLoader(paths, schema)
}

type NewVM func() (*luavm.VM, error)

func (Module) NewVM(
	loader configs.Loader,
	logger logs.Logger,
) NewVM {
	return func() (*luavm.VM, error) {
		vm := luavm.New()
		if err := configs.AssignGlobals(loader, "globals", vm); err != nil {
			vm.Close()
			return nil, err
		}
		if err := registerHostLib(vm, logger); err != nil {
			vm.Close()
			return nil, err
		}
		return vm, nil
	}
}

type RunScript func(ctx context.Context, vm *luavm.VM, path string) ([]luavm.Value, error)

func (Module) RunScript(
	loader configs.Loader,
	logger logs.Logger,
	newSpan logs.NewSpan,
) RunScript {
	sandbox := configs.First[bool](loader, "sandbox")
	allow := configs.First[[]string](loader, "allow")
	return func(ctx context.Context, vm *luavm.VM, path string) ([]luavm.Value, error) {
		ctx = logs.WithScript(ctx, path)
		ctx, _ = newSpan(ctx, "")
		logger.InfoContext(ctx, "run script",
			"path", path,
			"sandbox", sandbox,
		)
		var res []luavm.Value
		var err error
		if sandbox {
			env := vm.NewEnv(allow...)
			defer env.Release()
			res, err = vm.ExecFileIn(env, path)
		} else {
			res, err = vm.ExecFile(path)
		}
		if err != nil {
			return nil, logs.WrapSpan(ctx, err)
		}
		return res, nil
	}
}
