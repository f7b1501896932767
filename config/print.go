package config

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"

	"go-simpler.org/env"
)

// KV is a key/value pair.
type KV struct{ Key, Value st }

// KVSlice is a collection of key/value pairs.
type KVSlice []KV

func (kv KVSlice) Len() no         { return len(kv) }
func (kv KVSlice) Less(i, j no) bo { return kv[i].Key < kv[j].Key }
func (kv KVSlice) Swap(i, j no)    { kv[i], kv[j] = kv[j], kv[i] }

// EnvKV turns a struct with env tags into a list of environment variables
// and their values.
func EnvKV(cfg any) (m KVSlice) {
	t := reflect.TypeOf(cfg)
	v := reflect.ValueOf(cfg)
	if t.Kind() == reflect.Pointer {
		t, v = t.Elem(), v.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		k := t.Field(i).Tag.Get("env")
		if k == "" {
			continue
		}
		var val st
		switch f := v.Field(i).Interface().(type) {
		case st:
			val = f
		case time.Duration:
			val = f.String()
		case no, int64, bo:
			val = fmt.Sprint(f)
		case []st:
			val = strings.Join(f, ",")
		}
		m = append(m, KV{k, val})
	}
	return
}

// PrintEnv writes the configuration as a shell script that sets it.
func PrintEnv(cfg any, printer io.Writer) {
	_, _ = fmt.Fprintln(printer, "#!/usr/bin/env bash")
	kvs := EnvKV(cfg)
	sort.Sort(kvs)
	for _, v := range kvs {
		_, _ = fmt.Fprintf(printer, "export %s=%q\n", v.Key, v.Value)
	}
}

// PrintHelp writes the variables the configuration is read from.
func PrintHelp(cfg *C, printer io.Writer) {
	_, _ = fmt.Fprintf(printer, "\nenvironment variables that configure %s\n\n", cfg.AppName)
	env.Usage(cfg, printer, &env.Options{SliceSep: ","})
}
