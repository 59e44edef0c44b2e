package command

import (
	"errors"
	"fmt"
	"path"
	"strings"

	. "ecloudframes/common"
	"ecloudframes/config"
	"ecloudframes/status"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// -v and -debug lower the log level of the process logger.

type VerboseArgs struct {
	Verbose bool
	Debug   bool
}

func (va *VerboseArgs) Add(fs *CLI) {
	fs.Group("development")
	fs.BoolVar(&va.Verbose, "v", false, "Print verbose diagnostics to stderr")
	fs.BoolVar(&va.Debug, "debug", false, "Print debug diagnostics to stderr (implies -v)")
}

func (va *VerboseArgs) Validate() error {
	if va.Debug {
		va.Verbose = true
		Log.LowerLevelTo(status.LogLevelDebug)
	} else if va.Verbose {
		Log.LowerLevelTo(status.LogLevelInfo)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// StoreArgs locate the snapshot: -store, else the store-file of the configuration, else
// ~/.ecloudframes.  The configuration file itself is -config or ~/.ecloudframes, and may be absent,
// in which case the built-in defaults apply.

type StoreArgs struct {
	ConfigFile string
	StoreFile  string

	// Valid after Validate
	Config *config.Config
}

func (sa *StoreArgs) Add(fs *CLI) {
	fs.Group("data-source")
	fs.StringVar(&sa.ConfigFile, "config", "",
		"Read the engine configuration from `filename` [default: built-in]")
	fs.StringVar(&sa.StoreFile, "store", "",
		"Persist the tag tables in `filename` [default: "+config.DefaultStoreFile+"]")
}

func (sa *StoreArgs) Validate() error {
	ApplyDefault(&sa.ConfigFile, DataSourceConfig)
	var err error
	if sa.ConfigFile != "" {
		sa.ConfigFile = path.Clean(sa.ConfigFile)
		sa.Config, err = config.ReadFile(sa.ConfigFile)
		if err != nil {
			return err
		}
	} else {
		sa.Config = config.Default()
	}
	if sa.StoreFile == "" {
		// The configuration file's value takes precedence over the user default.
		if sa.ConfigFile == "" || sa.Config.StoreFile == config.DefaultStoreFile {
			ApplyDefault(&sa.StoreFile, DataSourceStore)
		}
	}
	if sa.StoreFile != "" {
		sa.Config.StoreFile = path.Clean(sa.StoreFile)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// SourceArgs add the data folders: -data-folder, else the configuration, else ~/.ecloudframes.

type SourceArgs struct {
	StoreArgs
	DataFolders string
}

func (sa *SourceArgs) Add(fs *CLI) {
	sa.StoreArgs.Add(fs)
	fs.StringVar(&sa.DataFolders, "data-folder", "",
		"Read catalogs and channel files from the comma-separated `folders`, later folders\n"+
			"overriding earlier ones")
}

func (sa *SourceArgs) Validate() error {
	if err := sa.StoreArgs.Validate(); err != nil {
		return err
	}
	if sa.DataFolders == "" && len(sa.Config.DataFolders) == 0 {
		ApplyDefault(&sa.DataFolders, DataSourceDataFolder)
	}
	if sa.DataFolders != "" {
		sa.Config.DataFolders = nil
		for _, f := range strings.Split(sa.DataFolders, ",") {
			if f = strings.TrimSpace(f); f != "" {
				sa.Config.DataFolders = append(sa.Config.DataFolders, path.Clean(f))
			}
		}
	}
	if len(sa.Config.DataFolders) == 0 {
		return errors.New("No data folders, use -data-folder or the configuration file")
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// KafkaArgs override the [kafka] section of the configuration.

type KafkaArgs struct {
	Broker string
}

func (ka *KafkaArgs) Add(fs *CLI) {
	fs.Group("daemon-configuration")
	fs.StringVar(&ka.Broker, "kafka", "",
		"Use the Kafka broker at `host:port` [default: from configuration, none]")
}

func (ka *KafkaArgs) Apply(cfg *config.Config) {
	if ka.Broker != "" {
		cfg.KafkaBroker = ka.Broker
	}
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Output format for rows.

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

type FormatArgs struct {
	Fmt string
}

func (fa *FormatArgs) Add(fs *CLI) {
	fs.Group("printing")
	fs.StringVar(&fa.Fmt, "fmt", FormatJSON, "Print rows as `format`, json or csv")
}

func (fa *FormatArgs) Validate() error {
	switch fa.Fmt {
	case FormatJSON, FormatCSV:
		return nil
	}
	return fmt.Errorf("Unknown format %s", fa.Fmt)
}
