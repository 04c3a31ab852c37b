package actions

import (
	"reflect"

	"github.com/forgewalk/forge/pkg/forge"
)

var (
	actionInterfaceType = reflect.TypeOf((*forge.Action)(nil)).Elem()
	baseActionType       = reflect.TypeOf(forge.BaseAction{})
)

// LoadModule registers every action-bearing field of a host-supplied
// module struct into reg. A field is action-bearing when its type
// implements forge.Action; such a field's struct type must also embed
// forge.BaseAction as a direct anonymous field (embedding through a
// nested embedded struct is not recognised) or LoadModule reports a
// configuration error. This is enforced via
// reflect instead of package scanning so a host gets a
// build-time-checkable struct to declare its action set in. Fields
// whose type implements neither are skipped silently; they're ordinary
// configuration, not actions.
//
// module must be a pointer to a struct, or a struct value. Exported
// fields only are considered, matching reflect's own visibility rule.
func LoadModule(reg *Registry, module any) (int, error) {
	v := reflect.ValueOf(module)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return 0, forge.NewError(forge.ErrCodeValidation, "action module is a nil pointer")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, forge.NewErrorf(forge.ErrCodeValidation, "action module must be a struct, got %s", v.Kind())
	}

	t := v.Type()
	registered := 0

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldVal := v.Field(i)
		fieldType := field.Type

		implementsAction := fieldType.Implements(actionInterfaceType) ||
			reflect.PointerTo(fieldType).Implements(actionInterfaceType)
		if !implementsAction {
			continue
		}

		if !embedsBaseAction(fieldType) {
			return registered, forge.NewErrorf(forge.ErrCodeValidation,
				"action module field %q implements Action but does not embed forge.BaseAction", field.Name)
		}

		named, ok := asNamedAction(fieldVal, fieldType)
		if !ok {
			return registered, forge.NewErrorf(forge.ErrCodeValidation,
				"action module field %q does not satisfy actions.NamedAction (missing Name/InputType)", field.Name)
		}

		if err := reg.Register(named); err != nil {
			return registered, err
		}
		registered++
	}

	return registered, nil
}

// embedsBaseAction reports whether t (or, if t is a pointer, its
// element type) has a field of type forge.BaseAction somewhere among
// its own fields — one level of embedding, matching how every builtin
// action in this package embeds it.
func embedsBaseAction(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Anonymous && t.Field(i).Type == baseActionType {
			return true
		}
	}
	return false
}

// asNamedAction extracts a NamedAction from a struct field's value,
// taking its address when the field's method set requires a pointer
// receiver (the common case, since RunAction mutates nothing but Name/
// InputType are typically defined on *T).
func asNamedAction(fieldVal reflect.Value, fieldType reflect.Type) (NamedAction, bool) {
	if fieldType.Implements(reflect.TypeOf((*NamedAction)(nil)).Elem()) {
		named, ok := fieldVal.Interface().(NamedAction)
		return named, ok
	}
	if fieldVal.CanAddr() {
		ptr := fieldVal.Addr()
		if named, ok := ptr.Interface().(NamedAction); ok {
			return named, true
		}
	}
	return nil, false
}
