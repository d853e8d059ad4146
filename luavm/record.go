package luavm

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// Results marks a struct whose fields travel as separate VM values, in field
// order, instead of as one table. Embed it to declare a multi-return
// aggregate:
//
//	type Pair struct {
//		luavm.Results
//		Name  string
//		Score float64
//	}
type Results struct{}

var resultsType = reflect.TypeFor[Results]()

func isResultsStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := range t.NumField() {
		field := t.Field(i)
		if field.Anonymous && field.Type == resultsType {
			return true
		}
	}
	return false
}

// fieldName resolves a struct field's visible name. A field is included
// unless it is unexported, is the Results marker, or carries the tag
// `lua:"-"`; a non-empty tag renames it.
func fieldName(field reflect.StructField) (string, bool) {
	if !field.IsExported() {
		return "", false
	}
	if field.Anonymous && field.Type == resultsType {
		return "", false
	}
	tag := field.Tag.Get("lua")
	switch tag {
	case "":
		return field.Name, true
	case "-":
		return "", false
	}
	return tag, true
}

// visibleFields lists the indices of a struct's visible fields, in
// declaration order.
func visibleFields(t reflect.Type) []int {
	var fields []int
	for i := range t.NumField() {
		if _, ok := fieldName(t.Field(i)); ok {
			fields = append(fields, i)
		}
	}
	return fields
}

// pullRecord fills a zero-valued struct field by field from matching table
// keys. Unknown keys are ignored and missing fields keep their defaults:
// the round-trip is deliberately permissive.
func (vm *VM) pullRecord(tbl *lua.LTable, target reflect.Value, at int) error {
	typ := target.Type()
	for i := range typ.NumField() {
		name, ok := fieldName(typ.Field(i))
		if !ok {
			continue
		}
		lv := tbl.RawGetString(name)
		if lv == lua.LNil {
			continue
		}
		if err := vm.fromLua(lv, target.Field(i), at); err != nil {
			return err
		}
	}
	return nil
}
