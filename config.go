// Package canetrack tracks commodity deliveries from harvest locations to
// processing facilities. The root package holds the error values and
// configuration types shared by the store backends, the tracker and the HTTP
// boundary.
package canetrack

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DBType is the type of a Database connection.
type DBType string

func (dbt DBType) String() string {
	return string(dbt)
}

const (
	DatabaseNone     DBType = "none"
	DatabaseSQLite   DBType = "sqlite"
	DatabaseFile     DBType = "file"
	DatabaseInMemory DBType = "inmem"
)

// DefaultDataFile is the name of the store file used by the file database when
// none is configured.
const DefaultDataFile = "canetrack.cdb"

// ParseDBType parses a string found in a connection string into a DBType.
func ParseDBType(s string) (DBType, error) {
	sLower := strings.ToLower(s)

	switch sLower {
	case DatabaseSQLite.String():
		return DatabaseSQLite, nil
	case DatabaseInMemory.String():
		return DatabaseInMemory, nil
	case DatabaseFile.String():
		return DatabaseFile, nil
	default:
		return DatabaseNone, fmt.Errorf("DB type not one of 'sqlite', 'file', or 'inmem': %q", s)
	}
}

// Database contains configuration settings for connecting to a persistence
// layer.
type Database struct {
	// Type is the type of database the config refers to. It also determines
	// which of its other fields are valid.
	Type DBType

	// DataDir is the path on disk to a directory to use to store data in. This
	// is only applicable for certain DB types: SQLite, File.
	DataDir string

	// DataFile is the name of the store file to use for a file database. By
	// default, it is DefaultDataFile. This is only applicable for File.
	DataFile string
}

// Validate returns an error if the Database does not have the correct fields
// set. Its type will be checked to ensure that it is a valid type to use and
// any fields necessary for connecting to that type of DB are also checked.
func (db Database) Validate() error {
	switch db.Type {
	case DatabaseInMemory:
		return nil
	case DatabaseSQLite:
		if db.DataDir == "" {
			return fmt.Errorf("DataDir not set to path")
		}
		return nil
	case DatabaseFile:
		if db.DataDir == "" {
			return fmt.Errorf("DataDir not set to path")
		}
		if db.DataFile == "" {
			return fmt.Errorf("DataFile not set")
		}
		return nil
	case DatabaseNone:
		return fmt.Errorf("'none' DB is not valid")
	default:
		return fmt.Errorf("unknown database type: %q", db.Type.String())
	}
}

// ParseDBConnString parses a database connection string of the form
// "engine:params" (or just "engine" if no other params are required) into a
// valid Database config object.
//
// Supported database types and a sample string for each are shown below.
// Placeholder values are between angle brackets, optional parts are between
// square brackets. Ordering of parameters does not matter.
//
// * In-memory database: "inmem"
// * SQLite3 DB file: "sqlite:</path/to/db/dir>"
// * File database: "file:dir=<path/to/db/dir>[,file=<db-file-name.cdb>]"
func ParseDBConnString(s string) (Database, error) {
	var paramStr string
	dbParts := strings.SplitN(s, ":", 2)

	if len(dbParts) == 2 {
		paramStr = strings.TrimSpace(dbParts[1])
	}

	dbEng, err := ParseDBType(strings.TrimSpace(dbParts[0]))
	if err != nil {
		return Database{}, fmt.Errorf("unsupported DB engine: %w", err)
	}

	switch dbEng {
	case DatabaseInMemory:
		if paramStr != "" {
			return Database{}, fmt.Errorf("unsupported param(s) for in-memory DB engine: %s", paramStr)
		}

		return Database{Type: DatabaseInMemory}, nil
	case DatabaseSQLite:
		if paramStr == "" {
			return Database{}, fmt.Errorf("sqlite DB engine requires path to data directory after ':'")
		}

		return Database{Type: DatabaseSQLite, DataDir: filepath.FromSlash(paramStr)}, nil
	case DatabaseFile:
		if paramStr == "" {
			return Database{}, fmt.Errorf("file DB engine requires qualified path to data directory after ':'")
		}

		params, err := parseParamsMap(paramStr)
		if err != nil {
			return Database{}, err
		}

		db := Database{Type: DatabaseFile}

		if val, ok := params["dir"]; ok {
			db.DataDir = filepath.FromSlash(val)
		} else {
			return Database{}, fmt.Errorf("file DB engine params missing qualified path to data directory in key 'dir'")
		}

		if val, ok := params["file"]; ok {
			db.DataFile = val
		} else {
			db.DataFile = DefaultDataFile
		}
		return db, nil
	default:
		return Database{}, fmt.Errorf("unknown DB engine: %q", dbEng.String())
	}
}

// parseParamsMap splits "k1=v1,k2=v2" into a map with lower-cased keys.
func parseParamsMap(paramStr string) (map[string]string, error) {
	params := map[string]string{}
	for idx, kv := range strings.Split(paramStr, ",") {
		parsed := strings.SplitN(kv, "=", 2)
		if len(parsed) != 2 || strings.TrimSpace(parsed[0]) == "" {
			return nil, fmt.Errorf("param %d: not a kv-pair: %q", idx, kv)
		}
		params[strings.ToLower(strings.TrimSpace(parsed[0]))] = strings.TrimSpace(parsed[1])
	}

	return params, nil
}

// LogProvider is the library used to write log output.
type LogProvider int

const (
	NoLog LogProvider = iota
	Jellog
	StdLog
)

func (p LogProvider) String() string {
	switch p {
	case NoLog:
		return "none"
	case Jellog:
		return "jellog"
	case StdLog:
		return "std"
	default:
		return fmt.Sprintf("LogProvider(%d)", int(p))
	}
}

// ParseLogProvider parses a string into a LogProvider. The empty string is
// parsed as NoLog.
func ParseLogProvider(s string) (LogProvider, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return NoLog, nil
	case "jellog":
		return Jellog, nil
	case "std":
		return StdLog, nil
	default:
		return NoLog, fmt.Errorf("not one of 'none', 'jellog', or 'std': %q", s)
	}
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Enabled is whether to enable built-in logging statements.
	Enabled bool

	// Provider must be the name of one of the logging providers. If set to
	// None or unset, it will default to Jellog.
	Provider LogProvider

	// File to log to. If not set, all logging will be done to stderr and it
	// will display all logging statements. If set, the file will receive all
	// levels of log messages and stderr will show only those of Info level or
	// higher.
	File string
}

// Format is a configuration file format.
type Format int

const (
	NoFormat Format = iota
	JSON
	YAML
)

func (f Format) String() string {
	switch f {
	case NoFormat:
		return "NoFormat"
	case JSON:
		return "JSON"
	case YAML:
		return "YAML"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extensions returns the file extensions (without the leading dot) that are
// recognized as the format.
func (f Format) Extensions() []string {
	switch f {
	case JSON:
		return []string{"json", "jsn"}
	case YAML:
		return []string{"yaml", "yml"}
	default:
		return nil
	}
}

// Config is a configuration for a canetrack instance. It contains all
// parameters that can be used to configure the store, the HTTP boundary and
// logging.
type Config struct {
	// Address is the address to bind the HTTP boundary to. If empty, all
	// interfaces are used.
	Address string

	// Port is the port to listen on. If 0, 8080 is used.
	Port int

	// URIBase is the prefix that all routes are mounted under.
	URIBase string

	// DB is the configuration to use for connecting to the database. If not
	// provided, it will be set to a SQLite database in "./data".
	DB Database

	// Log is the logging configuration.
	Log LogConfig

	// Format is the format the config was loaded from, if any.
	Format Format
}

// FillDefaults returns a new Config identitical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCFG := cfg

	if newCFG.Port == 0 {
		newCFG.Port = 8080
	}
	if newCFG.URIBase == "" {
		newCFG.URIBase = "/"
	}
	if newCFG.DB.Type == DatabaseNone || newCFG.DB.Type == "" {
		newCFG.DB = Database{Type: DatabaseSQLite, DataDir: "data"}
	}
	if newCFG.DB.Type == DatabaseFile && newCFG.DB.DataFile == "" {
		newCFG.DB.DataFile = DefaultDataFile
	}
	if newCFG.Log.Enabled && newCFG.Log.Provider == NoLog {
		newCFG.Log.Provider = Jellog
	}

	return newCFG
}

// Validate returns an error if the Config has invalid field values set. Empty
// and unset values are considered invalid; if defaults are intended to be used,
// call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port: %d is not a valid port number", cfg.Port)
	}
	if !strings.HasPrefix(cfg.URIBase, "/") {
		return fmt.Errorf("base: must start with '/'")
	}
	if err := cfg.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if cfg.Log.Enabled && cfg.Log.Provider == NoLog {
		return fmt.Errorf("logging: provider must be set when logging is enabled")
	}

	return nil
}

// ListenAddress returns the address:port string to bind to.
func (cfg Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
}
