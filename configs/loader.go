package configs

import (
	"iter"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

type Loader struct {
	getRoots func() ([]rootInfo, error)
}

type rootInfo struct {
	value cue.Value
	name  string
}

// NewLoader reads config files lazily, on first access. Files earlier in the
// list take priority for single-value lookups.
func NewLoader(filePaths []string, schemaSrc string) Loader {
	return Loader{

		getRoots: sync.OnceValues(func() (ret []rootInfo, err error) {

			schema, err := compileSchema(schemaSrc)
			if err != nil {
				return nil, err
			}

			for _, filePath := range filePaths {
				content, err := os.ReadFile(filePath)
				if err != nil {
					return nil, err
				}
				info, err := compileRoot(filePath, content, schema)
				if err != nil {
					return nil, err
				}
				ret = append(ret, info)
			}

			return
		}),
	}
}

// NewSourceLoader compiles config from in-memory sources, keyed by a display
// name used in error positions. Same precedence rules as NewLoader.
func NewSourceLoader(sources []Source, schemaSrc string) Loader {
	return Loader{

		getRoots: sync.OnceValues(func() (ret []rootInfo, err error) {

			schema, err := compileSchema(schemaSrc)
			if err != nil {
				return nil, err
			}

			for _, source := range sources {
				info, err := compileRoot(source.Name, []byte(source.Content), schema)
				if err != nil {
					return nil, err
				}
				ret = append(ret, info)
			}

			return
		}),
	}
}

type Source struct {
	Name    string
	Content string
}

func compileSchema(schemaSrc string) (cue.Value, error) {
	var schema cue.Value
	if schemaSrc == "" {
		return schema, nil
	}
	ctx := cuecontext.New()
	schema = ctx.CompileString("close({" + schemaSrc + "})")
	if err := schema.Err(); err != nil {
		return schema, err
	}
	return schema, nil
}

func compileRoot(name string, content []byte, schema cue.Value) (rootInfo, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(
		content,
		cue.Filename(name),
	)
	if err := value.Err(); err != nil {
		return rootInfo{}, err
	}
	if schema.Exists() {
		if err := schema.Unify(value).Validate(); err != nil {
			return rootInfo{}, err
		}
	}
	return rootInfo{
		value: value,
		name:  name,
	}, nil
}

func (l Loader) IterCueValues(path string) iter.Seq2[*cue.Value, error] {
	return func(yield func(*cue.Value, error) bool) {
		roots, err := l.getRoots()
		if err != nil {
			yield(nil, err)
			return
		}

		cuePath := cue.ParsePath(path)
		for _, info := range roots {
			value := info.value.LookupPath(cuePath)
			if err := value.Err(); err == nil {
				if !yield(&value, nil) {
					break
				}
			}
		}
	}
}

func (l Loader) AssignFirst(path string, target any) error {
	roots, err := l.getRoots()
	if err != nil {
		return err
	}

	cuePath := cue.ParsePath(path)
	for _, info := range roots {
		value := info.value.LookupPath(cuePath)
		if err := value.Err(); err == nil {
			if err := value.Decode(target); err != nil {
				return err
			}
			return nil
		}
	}

	return ErrValueNotFound
}
