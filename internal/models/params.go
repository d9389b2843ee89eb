package models

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// paramIndex maps yaml names of the numeric Params fields to field indices.
var paramIndex = func() map[string]int {
	idx := make(map[string]int)
	t := reflect.TypeOf(Params{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		switch f.Type.Kind() {
		case reflect.Float64, reflect.Int:
		default:
			continue
		}
		name := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if name != "" {
			idx[name] = i
		}
	}
	return idx
}()

// ParamNames lists the settable parameter names in sorted order.
func ParamNames() []string {
	names := make([]string, 0, len(paramIndex))
	for name := range paramIndex {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set assigns a parameter by its yaml name. Integer fields are truncated.
func (p *Params) Set(name string, value float64) error {
	i, ok := paramIndex[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	f := reflect.ValueOf(p).Elem().Field(i)
	if f.Kind() == reflect.Int {
		f.SetInt(int64(value))
		return nil
	}
	f.SetFloat(value)
	return nil
}

// Get reads a parameter by its yaml name.
func (p Params) Get(name string) (float64, error) {
	i, ok := paramIndex[name]
	if !ok {
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
	f := reflect.ValueOf(p).Field(i)
	if f.Kind() == reflect.Int {
		return float64(f.Int()), nil
	}
	return f.Float(), nil
}
