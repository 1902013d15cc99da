package layering

import "reflect"

// Fill returns a copy of value where every absent part (nil pointer, nil
// map, nil slice, nil interface) is taken from fallback. Scalars set on value
// always win, even when they hold their zero value. Struct fields and map
// entries are filled recursively.
func Fill[T any](value, fallback T) T {
	merged := fillValue(reflect.ValueOf(value), reflect.ValueOf(fallback))
	return toType[T](merged)
}

// Clone returns a deep copy of value. Unexported struct fields, such as the
// wall clock and location of a time.Time, are copied as is.
func Clone[T any](value T) T {
	return toType[T](cloneValue(reflect.ValueOf(value)))
}

func toType[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	target := reflect.TypeOf(zero)
	if target == nil {
		// T is an interface type; the dynamic value is returned as is.
		out, _ := v.Interface().(T)
		return out
	}
	if v.Type() != target {
		result := reflect.New(target).Elem()
		result.Set(v.Convert(target))
		return result.Interface().(T)
	}
	return v.Interface().(T)
}

func fillValue(value, fallback reflect.Value) reflect.Value {
	if !value.IsValid() {
		return cloneValue(fallback)
	}

	switch value.Kind() {
	case reflect.Pointer:
		if value.IsNil() {
			return cloneValue(fallback)
		}
		var fallbackElem reflect.Value
		if fallback.IsValid() && fallback.Kind() == reflect.Pointer && !fallback.IsNil() {
			fallbackElem = fallback.Elem()
		}
		filled := fillValue(value.Elem(), fallbackElem)
		out := reflect.New(value.Type().Elem())
		out.Elem().Set(filled)
		return out
	case reflect.Interface:
		if value.IsNil() {
			return cloneValue(fallback)
		}
		var fallbackElem reflect.Value
		if fallback.IsValid() && !fallback.IsNil() {
			fallbackElem = fallback.Elem()
		}
		return fillValue(value.Elem(), fallbackElem).Convert(value.Type())
	case reflect.Struct:
		out := reflect.New(value.Type()).Elem()
		out.Set(value)
		var fallbackStruct reflect.Value
		if fallback.IsValid() && fallback.Type() == value.Type() {
			fallbackStruct = fallback
		}
		for i := 0; i < value.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			var fallbackField reflect.Value
			if fallbackStruct.IsValid() {
				fallbackField = fallbackStruct.Field(i)
			}
			field.Set(fillValue(value.Field(i), fallbackField))
		}
		return out
	case reflect.Map:
		if value.IsNil() {
			return cloneValue(fallback)
		}
		// Map entries present on value are kept; entries only present on
		// fallback are not added, a stored map is authoritative.
		out := reflect.MakeMapWithSize(value.Type(), value.Len())
		iter := value.MapRange()
		for iter.Next() {
			var fallbackEntry reflect.Value
			if fallback.IsValid() && fallback.Kind() == reflect.Map && !fallback.IsNil() {
				fallbackEntry = fallback.MapIndex(iter.Key())
			}
			if fallbackEntry.IsValid() {
				out.SetMapIndex(iter.Key(), fillValue(iter.Value(), fallbackEntry))
				continue
			}
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if value.IsNil() {
			return cloneValue(fallback)
		}
		return cloneValue(value)
	default:
		return cloneValue(value)
	}
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	default:
		if v.CanInterface() {
			return reflect.ValueOf(v.Interface())
		}
		return v
	}
}
