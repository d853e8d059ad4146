package luavm

import (
	"github.com/reusee/e5"
)

var (
	we = e5.Wrap.With(e5.WrapStacktrace)
)
