// Package config loads canetrack configuration files and opens the store that
// a configuration names.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/dao/filedb"
	"github.com/canetrack/canetrack/dao/inmem"
	"github.com/canetrack/canetrack/dao/sqlite"
	"gopkg.in/yaml.v3"
)

// Connector opens a dao.Store for a database configuration.
type Connector func(db canetrack.Database) (dao.Store, error)

// ConnectorRegistry holds registered connector functions for opening stores on
// database connections.
//
// The zero value can be immediately used and will have the built-in
// connectors for every DBType available. This can be disabled by setting
// DisableDefaults to true before attempting to use it.
type ConnectorRegistry struct {
	DisableDefaults bool

	// Seed is written by the built-in connectors to stores they create. If
	// nil, dao.DefaultSeed is used.
	Seed *dao.Seed

	reg map[canetrack.DBType]Connector
}

func (cr *ConnectorRegistry) seed() dao.Seed {
	if cr.Seed != nil {
		return *cr.Seed
	}
	return dao.DefaultSeed()
}

func (cr *ConnectorRegistry) initDefaults() {
	if cr.reg != nil {
		return
	}
	cr.reg = map[canetrack.DBType]Connector{}

	if cr.DisableDefaults {
		return
	}

	cr.reg[canetrack.DatabaseInMemory] = func(db canetrack.Database) (dao.Store, error) {
		return inmem.NewStore(cr.seed()), nil
	}
	cr.reg[canetrack.DatabaseSQLite] = func(db canetrack.Database) (dao.Store, error) {
		store, err := sqlite.NewStore(db.DataDir, cr.seed())
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}
		return store, nil
	}
	cr.reg[canetrack.DatabaseFile] = func(db canetrack.Database) (dao.Store, error) {
		file := db.DataFile
		if file == "" {
			file = canetrack.DefaultDataFile
		}
		return filedb.Open(filepath.Join(db.DataDir, file), cr.seed()), nil
	}
}

// Register sets the connector used for engine. Registering a second connector
// for the same engine is an error.
func (cr *ConnectorRegistry) Register(engine canetrack.DBType, connector Connector) error {
	if connector == nil {
		return fmt.Errorf("connector function cannot be nil")
	}
	if _, err := canetrack.ParseDBType(engine.String()); err != nil {
		return fmt.Errorf("%q is not a supported DB type", engine)
	}

	cr.initDefaults()

	if _, ok := cr.reg[engine]; ok {
		return fmt.Errorf("duplicate connector registration; %q already has a registered connector", engine)
	}

	cr.reg[engine] = connector
	return nil
}

// List returns an alphabetized list of all engines that currently have a
// registered connector.
func (cr *ConnectorRegistry) List() []canetrack.DBType {
	cr.initDefaults()

	engines := make([]canetrack.DBType, 0, len(cr.reg))
	for k := range cr.reg {
		engines = append(engines, k)
	}

	sort.Slice(engines, func(i, j int) bool {
		return engines[i] < engines[j]
	})
	return engines
}

// Connect validates db and opens a store on it with the connector registered
// for its type. The store is not initialized.
func (cr *ConnectorRegistry) Connect(db canetrack.Database) (dao.Store, error) {
	cr.initDefaults()

	if err := db.Validate(); err != nil {
		return nil, err
	}

	connector, ok := cr.reg[db.Type]
	if !ok {
		return nil, fmt.Errorf("%q has no registered connector", db.Type)
	}

	return connector(db)
}

// Connect opens a store on db using the built-in connectors and the default
// seed data.
func Connect(db canetrack.Database) (dao.Store, error) {
	return (&ConnectorRegistry{}).Connect(db)
}

type marshaledDatabase struct {
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
	Dir  string `yaml:"dir,omitempty" json:"dir,omitempty"`
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

type marshaledLog struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Provider string `yaml:"provider" json:"provider"`
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
}

type marshaledConfig struct {
	Listen  string            `yaml:"listen" json:"listen"`
	Base    string            `yaml:"base" json:"base"`
	DB      marshaledDatabase `yaml:"db" json:"db"`
	Logging marshaledLog      `yaml:"logging" json:"logging"`
}

func decode(f canetrack.Format, data []byte) (canetrack.Config, error) {
	var cfg canetrack.Config
	var mc marshaledConfig
	var err error

	switch f {
	case canetrack.JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&mc)
	case canetrack.YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&mc)
	default:
		return cfg, fmt.Errorf("cannot unmarshal data in format %q", f.String())
	}

	// an empty file is an empty config
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, err
	}

	cfg.Format = f
	err = unmarshalConfig(&cfg, mc)
	return cfg, err
}

func encode(f canetrack.Format, c canetrack.Config) ([]byte, error) {
	mc := marshalConfig(c)
	var err error
	var data []byte

	switch f {
	case canetrack.JSON:
		data, err = json.MarshalIndent(mc, "", "  ")
	case canetrack.YAML:
		data, err = yaml.Marshal(mc)
	default:
		return nil, fmt.Errorf("cannot marshal data in format %q", f.String())
	}

	return data, err
}

// SupportedFormats returns a list of formats that the config module supports
// decoding. Includes all but NoFormat.
func SupportedFormats() []canetrack.Format {
	return []canetrack.Format{canetrack.JSON, canetrack.YAML}
}

// DetectFormat detects the format of a given configuration file and returns the
// Format that can decode it. Returns NoFormat if the format could not be
// detected.
func DetectFormat(file string) canetrack.Format {
	ext := strings.ToLower(filepath.Ext(file))
	ext = strings.TrimPrefix(ext, ".")

	for _, f := range SupportedFormats() {
		for _, checkedExt := range f.Extensions() {
			if ext == strings.ToLower(checkedExt) {
				return f
			}
		}
	}

	return canetrack.NoFormat
}

// Dump dumps the configuration into the bytes of a formatted file. If parsed
// by Load, the result gives an equivalent config.
//
// The config is dumped in the format it was loaded with, or in YAML if cfg was
// not loaded from a file.
//
// This function will cause a panic if there is a problem marshaling the config
// data in its format.
func Dump(cfg canetrack.Config) []byte {
	f := cfg.Format
	if f == canetrack.NoFormat {
		f = canetrack.YAML
	}
	b, err := encode(f, cfg)
	if err != nil {
		panic(fmt.Sprintf("format encoding failed: %v", err))
	}
	return b
}

// Load loads a configuration from a JSON or YAML file. The format of the file
// is determined by examining its extension; see DetectFormat. Unknown keys are
// an error.
//
// The returned Config is not validated and unset values are not defaulted;
// call FillDefaults and Validate on it before use.
func Load(file string) (canetrack.Config, error) {
	f := DetectFormat(file)
	if f == canetrack.NoFormat {
		var exts []string
		for _, f := range SupportedFormats() {
			for _, ext := range f.Extensions() {
				exts = append(exts, "."+ext)
			}
		}

		msg := strings.Join(exts[:len(exts)-1], ", ") + ", or " + exts[len(exts)-1]
		return canetrack.Config{}, fmt.Errorf("%s: incompatible format; must be a %s file", file, msg)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return canetrack.Config{}, fmt.Errorf("%s: %w", file, err)
	}

	cfg, err := decode(f, data)
	if err != nil {
		return canetrack.Config{}, fmt.Errorf("%s: %w", file, err)
	}
	return cfg, nil
}

// unmarshal completely replaces all attributes.
//
// does no validation except that which is required for parsing.
func unmarshalLog(log *canetrack.LogConfig, m marshaledLog) error {
	var err error

	log.Enabled = m.Enabled
	log.Provider, err = canetrack.ParseLogProvider(m.Provider)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	log.File = m.File

	return nil
}

func marshalLog(log canetrack.LogConfig) marshaledLog {
	return marshaledLog{
		Enabled:  log.Enabled,
		Provider: log.Provider.String(),
		File:     log.File,
	}
}

// an unset type is left as the zero Database so that FillDefaults can pick
// the default store.
func unmarshalDatabase(db *canetrack.Database, m marshaledDatabase) error {
	*db = canetrack.Database{}
	if m.Type == "" {
		return nil
	}

	var err error
	db.Type, err = canetrack.ParseDBType(m.Type)
	if err != nil {
		return fmt.Errorf("type: %w", err)
	}

	db.DataDir = filepath.FromSlash(m.Dir)
	db.DataFile = m.File

	return nil
}

func marshalDatabase(db canetrack.Database) marshaledDatabase {
	if db.Type == "" || db.Type == canetrack.DatabaseNone {
		return marshaledDatabase{}
	}
	return marshaledDatabase{
		Type: db.Type.String(),
		Dir:  filepath.ToSlash(db.DataDir),
		File: db.DataFile,
	}
}

// unmarshal completely replaces all attributes except Format with the values
// or missing values in the marshaledConfig.
func unmarshalConfig(cfg *canetrack.Config, m marshaledConfig) error {
	cfg.Address = ""
	cfg.Port = 0
	if m.Listen != "" {
		bindParts := strings.SplitN(m.Listen, ":", 2)
		if len(bindParts) != 2 {
			return fmt.Errorf("listen: not in \"ADDRESS:PORT\" or \":PORT\" format")
		}

		port, err := strconv.Atoi(bindParts[1])
		if err != nil {
			return fmt.Errorf("listen: %q is not a valid port number", bindParts[1])
		}
		cfg.Address = bindParts[0]
		cfg.Port = port
	}

	cfg.URIBase = m.Base

	if err := unmarshalDatabase(&cfg.DB, m.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := unmarshalLog(&cfg.Log, m.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}

func marshalConfig(cfg canetrack.Config) marshaledConfig {
	mc := marshaledConfig{
		Base:    cfg.URIBase,
		DB:      marshalDatabase(cfg.DB),
		Logging: marshalLog(cfg.Log),
	}
	if cfg.Address != "" || cfg.Port != 0 {
		mc.Listen = fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	}
	return mc
}
