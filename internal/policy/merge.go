package policy

import (
	"reflect"
	"sort"
	"strings"
)

// Merge overlays the managed fields present in desired onto remote. Fields that
// desired leaves unset are not managed and keep the remote value. The result
// keeps remote's identity (id, name, location) and the returned slice lists
// the file keys of every managed field whose value differs, in field order.
//
// String lists compare without regard to order; the store does not preserve
// member order.
func Merge[T any](desired, remote T) (T, []string) {
	merged := remote
	dv := reflect.ValueOf(&desired).Elem()
	mv := reflect.ValueOf(&merged).Elem()
	if dv.Kind() != reflect.Struct {
		return merged, nil
	}

	var changed []string
	t := dv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("reconcile") == "-" {
			continue
		}
		want := dv.Field(i)
		if isUnset(want) {
			continue
		}
		have := mv.Field(i)
		if equalValues(want, have) {
			continue
		}
		have.Set(want)
		changed = append(changed, fieldKey(field))
	}

	if ex, ok := any(desired).(exclusiveFields); ok {
		changed = append(changed, clearExclusive(dv, mv, ex.ExclusiveFields())...)
	}
	return merged, changed
}

// exclusiveFields is implemented by records with groups of fields of which at
// most one may be set, such as the value of an address.
type exclusiveFields interface {
	ExclusiveFields() [][]string
}

// clearExclusive unsets, in merged, the members of each group that desired
// leaves unset while setting another member of the same group. It returns the
// keys it cleared.
func clearExclusive(desired, merged reflect.Value, groups [][]string) []string {
	index := make(map[string]int)
	t := desired.Type()
	for i := 0; i < t.NumField(); i++ {
		index[fieldKey(t.Field(i))] = i
	}

	var cleared []string
	for _, group := range groups {
		chosen := false
		for _, key := range group {
			if i, ok := index[key]; ok && !isUnset(desired.Field(i)) {
				chosen = true
				break
			}
		}
		if !chosen {
			continue
		}
		for _, key := range group {
			i, ok := index[key]
			if !ok || !isUnset(desired.Field(i)) || isUnset(merged.Field(i)) {
				continue
			}
			merged.Field(i).Set(reflect.Zero(merged.Field(i).Type()))
			cleared = append(cleared, key)
		}
	}
	return cleared
}

// ManagedFields returns the file keys of the fields desired sets.
func ManagedFields[T any](desired T) []string {
	dv := reflect.ValueOf(desired)
	if dv.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	t := dv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("reconcile") == "-" || isUnset(dv.Field(i)) {
			continue
		}
		keys = append(keys, fieldKey(field))
	}
	return keys
}

func fieldKey(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func isUnset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}

func equalValues(a, b reflect.Value) bool {
	if a.Kind() == reflect.Pointer {
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return equalValues(a.Elem(), b.Elem())
	}

	switch a.Kind() {
	case reflect.Slice:
		if a.Type().Elem().Kind() == reflect.String {
			return equalStringSets(a, b)
		}
		return reflect.DeepEqual(a.Interface(), b.Interface())
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !a.Type().Field(i).IsExported() {
				continue
			}
			if !equalValues(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
}

// equalStringSets treats nil and empty as equal and ignores ordering.
func equalStringSets(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	left := make([]string, a.Len())
	right := make([]string, b.Len())
	for i := 0; i < a.Len(); i++ {
		left[i] = a.Index(i).String()
		right[i] = b.Index(i).String()
	}
	sort.Strings(left)
	sort.Strings(right)
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}
