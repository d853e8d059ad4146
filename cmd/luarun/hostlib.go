package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/reusee/luautil/logs"
	"github.com/reusee/luautil/luavm"
)

func registerHostLib(vm *luavm.VM, logger logs.Logger) error {
	lib, err := vm.RegisterLibrary("host", map[string]any{

		"log": &luavm.GoFunc{
			Func: func(msg string, args ...luavm.Value) {
				kvs := make([]any, 0, len(args)*2)
				for i, arg := range args {
					kvs = append(kvs, fmt.Sprintf("arg%d", i+1), arg.String())
				}
				logger.Info(msg, kvs...)
			},
		},

		"getenv": &luavm.GoFunc{
			Func: func(name string, fallback string) string {
				if value := os.Getenv(name); value != "" {
					return value
				}
				return fallback
			},
			Defaults: []any{""},
		},

		"read": &luavm.Overload{
			Candidates: []*luavm.GoFunc{
				{Func: func(path string) (string, error) {
					content, err := os.ReadFile(path)
					return string(content), err
				}},
				{Func: func(path string, limit int) (string, error) {
					content, err := os.ReadFile(path)
					if err != nil {
						return "", err
					}
					if len(content) > limit {
						content = content[:limit]
					}
					return string(content), nil
				}},
			},
		},

		"glob": filepath.Glob,

		"write": func(path string, content string) error {
			return os.WriteFile(path, []byte(content), 0644)
		},
	})
	if err != nil {
		return err
	}
	lib.Release()
	return nil
}
