package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/reusee/dscope"
	"github.com/reusee/luautil/configs"
	"github.com/reusee/luautil/logs"
	"github.com/reusee/luautil/luavm"
	"github.com/reusee/luautil/modes"
	"github.com/reusee/luautil/vars"
)

func main() {

	args := os.Args[1:]
	var scripts []string
	var inline []string
	interactive := false

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-e":
			i++
			if i >= len(args) {
				os.Stderr.WriteString("-e requires an argument\n")
				os.Exit(-1)
			}
			inline = append(inline, args[i])
		case "-i":
			interactive = true
		case "-log-debug":
			logs.SetLevel(slog.LevelDebug)
		case "-log-warn":
			logs.SetLevel(slog.LevelWarn)
		case "-log-error":
			logs.SetLevel(slog.LevelError)
		default:
			scripts = append(scripts, arg)
		}
	}

	if vars.StrToBool(os.Getenv("LUARUN_DEBUG")) {
		logs.SetLevel(slog.LevelDebug)
	}

	dscope.New(
		new(Module),
		modes.ForProduction(),
	).Call(func(
		newVM NewVM,
		runScript RunScript,
		loader configs.Loader,
	) {

		vm, err := newVM()
		ce(err)
		defer vm.Close()

		ctx := context.Background()

		for _, code := range inline {
			res, err := vm.ExecString(code, "(command line)")
			ce(err)
			printValues(res)
		}

		for _, path := range scripts {
			res, err := runScript(ctx, vm, path)
			ce(err)
			printValues(res)
		}

		if interactive || (len(scripts) == 0 && len(inline) == 0) {
			runREPL(vm, loader)
		}

	})

}

func printValues(values []luavm.Value) {
	for _, value := range values {
		pt("%s\n", value.String())
	}
}
