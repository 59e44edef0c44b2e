// User defaults from ~/.ecloudframes.
//
// The file has the same grammar as the engine configuration file but only the [data-source]
// section is recognized here, and its values supply defaults for options that were not given on the
// command line.  Values are subject to environment variable expansion.

package common

import (
	"errors"
	"io"
	"os"
	"path"

	ini "github.com/lars-t-hansen/ini"
)

// MT: Constant after initialization
var (
	p                    = ini.NewParser()
	store                *ini.Store
	dataSource           = p.AddSection("data-source")
	DataSourceConfig     = dataSource.AddString("config")
	DataSourceDataFolder = dataSource.AddString("data-folder")
	DataSourceStore      = dataSource.AddString("store")
)

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		return
	}
	fn := path.Join(path.Clean(home), ".ecloudframes")
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			Log.Errorf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	if err := LoadDefaults(input); err != nil {
		Log.Errorf("Error in trying to parse %s: %s", fn, err.Error())
	}
}

// Replace the current defaults with those read from input.  Only for initialization and testing.
func LoadDefaults(input io.Reader) error {
	s, err := p.Parse(input)
	if err != nil {
		return err
	}
	store = s
	return nil
}

func HasDefault(f *ini.Field) bool {
	return store != nil && f.Present(store)
}

// If *sp is empty and there is a default for f then set *sp to the expanded default and return
// true, otherwise return false.
func ApplyDefault(sp *string, f *ini.Field) bool {
	if *sp != "" || store == nil || !f.Present(store) {
		return false
	}
	*sp = os.ExpandEnv(f.StringVal(store))
	return true
}
