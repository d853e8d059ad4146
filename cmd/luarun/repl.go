package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/reusee/luautil/configs"
	"github.com/reusee/luautil/luavm"
	"github.com/reusee/luautil/vars"
)

func runREPL(vm *luavm.VM, loader configs.Loader) {
	historyFile := configs.First[string](loader, "history_file")
	if historyFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			historyFile = filepath.Join(home, ".luarun_history")
		}
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      vars.FirstNonZero(configs.First[string](loader, "prompt"), "> "),
		HistoryFile: historyFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	defer rl.Close()
	for {
		line, err := rl.Readline()
		if err != nil { // Ctrl-C or Ctrl-D
			break
		}
		if line == "" {
			continue
		}

		// an expression is evaluated and printed, anything else just runs
		src := "return " + line
		if _, err := vm.L.Load(strings.NewReader(src), "repl"); err != nil {
			src = line
		}
		res, err := vm.ExecString(src, "repl")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		for _, value := range res {
			fmt.Println(value.String())
		}
	}
}
