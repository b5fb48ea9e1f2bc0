package utils

import (
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// AttributeMap is a loosely typed set of configuration attributes, as decoded from JSON or YAML.
type AttributeMap map[string]interface{}

// Has returns whether or not the given attribute is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// Float64 returns the attribute as a float64, or def when it is absent. It panics if
// the value cannot be interpreted as a number.
func (am AttributeMap) Float64(name string, def float64) float64 {
	x, has := am[name]
	if !has || x == nil {
		return def
	}
	v, err := cast.ToFloat64E(x)
	if err != nil {
		panic(errors.Errorf("wanted a float64 for (%s) but got (%v) %T", name, x, x))
	}
	return v
}

// Int returns the attribute as an int, or def when it is absent. It panics if the value
// cannot be interpreted as an integer.
func (am AttributeMap) Int(name string, def int) int {
	x, has := am[name]
	if !has || x == nil {
		return def
	}
	v, err := cast.ToIntE(x)
	if err != nil {
		panic(errors.Errorf("wanted an int for (%s) but got (%v) %T", name, x, x))
	}
	return v
}

// Bool returns the attribute as a bool, or def when it is absent. Only real booleans are
// accepted; anything else panics.
func (am AttributeMap) Bool(name string, def bool) bool {
	if !am.Has(name) {
		return def
	}
	return mustAttribute[bool](am, name)
}

// String returns the attribute as a string, or "" when it is absent.
func (am AttributeMap) String(name string) string {
	if x, has := am[name]; !has || x == nil {
		return ""
	}
	return mustAttribute[string](am, name)
}

// mustAttribute returns the named attribute as a T, panicking when it holds anything else.
func mustAttribute[T any](am AttributeMap, name string) T {
	v, ok := am[name].(T)
	if !ok {
		panic(errors.Wrapf(NewUnexpectedTypeError[T](am[name]), "attribute (%s)", name))
	}
	return v
}

// DecodeAttributes decodes attributes onto to, matching keys against json tags. Fields of to that
// have no key keep their value, while maps and slices that do are replaced rather than merged.
// Keys that match no field are returned sorted.
func DecodeAttributes(to interface{}, attributes AttributeMap) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           to,
		Metadata:         &md,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}
