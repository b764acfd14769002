// Package config loads pollwatch settings from layered YAML files, the
// environment and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// =============================================================================
// Overrides
// =============================================================================

// Overrides holds values set explicitly by the caller, usually from flags.
// A nil field leaves the config alone. A set field replaces the config
// value even when it is zero, false or an empty list. The config tag is
// the dotted YAML key the field writes to.
type Overrides struct {
	Dir        *string   `config:"watch.dir"`
	Interval   *string   `config:"watch.interval"`
	Include    *[]string `config:"watch.include"`
	Exclude    *[]string `config:"watch.exclude"`
	LogFile    *string   `config:"sink.log_file"`
	SQLitePath *string   `config:"sink.sqlite_path"`
	Preview    *bool     `config:"preview.enabled"`
	Bytes      *int      `config:"preview.bytes"`
	Group      *int      `config:"preview.group"`
	LogLevel   *string   `config:"log.level"`
	LogFormat  *string   `config:"log.format"`
}

// Merge writes every set field of o into cfg. Slices are copied, so cfg
// never aliases memory owned by o.
func (o *Overrides) Merge(cfg *Config) error {
	if o == nil {
		return nil
	}

	src := reflect.ValueOf(o).Elem()
	dst := reflect.ValueOf(cfg).Elem()

	for i := 0; i < src.NumField(); i++ {
		field := src.Field(i)
		if field.IsNil() {
			continue
		}

		key := src.Type().Field(i).Tag.Get("config")
		target, err := lookup(dst, key)
		if err != nil {
			return err
		}

		value := field.Elem()
		if value.Type() != target.Type() {
			return fmt.Errorf("%w: %s wants %s, got %s", ErrInvalidValue, key, target.Type(), value.Type())
		}
		target.Set(cloneValue(value))
	}

	return nil
}

// IsEmpty reports whether no field of o is set.
func (o *Overrides) IsEmpty() bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o).Elem()
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).IsNil() {
			return false
		}
	}
	return true
}

// =============================================================================
// String Values
// =============================================================================

// SetString parses raw according to the type behind key and stores it in
// cfg. Lists are comma separated. Nothing is written if raw does not parse.
func SetString(cfg *Config, key, raw string) error {
	target, err := lookup(reflect.ValueOf(cfg).Elem(), key)
	if err != nil {
		return err
	}

	switch target.Kind() {
	case reflect.String:
		// Durations are kept as strings in the schema.
		if key == "watch.interval" {
			if _, err := time.ParseDuration(raw); err != nil {
				return fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, raw, err)
			}
		}
		target.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, raw, err)
		}
		target.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, raw, err)
		}
		target.SetInt(int64(n))
	case reflect.Slice:
		if target.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		target.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	return nil
}

// lookup resolves a dotted key such as "preview.enabled" to the settable
// Config field whose yaml tags match each segment.
func lookup(v reflect.Value, key string) (reflect.Value, error) {
	for _, part := range strings.Split(key, ".") {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		next, ok := fieldByYAMLName(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		v = next
	}
	if v.Kind() == reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %s is a section", ErrUnknownKey, key)
	}
	return v, nil
}

func fieldByYAMLName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func cloneValue(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Slice || v.IsNil() {
		return v
	}
	c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(c, v)
	return c
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
