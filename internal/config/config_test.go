package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/dao/filedb"
	"github.com/canetrack/canetrack/dao/inmem"
	"github.com/canetrack/canetrack/dao/sqlite"
	"github.com/stretchr/testify/assert"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0660); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return file
}

func Test_Load(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string

		expect            canetrack.Config
		expectErrContains string
	}{
		{
			name: "full yaml",
			file: "canetrack.yml",
			content: `listen: localhost:9000
base: /api
db:
  type: file
  dir: data/store
  file: deliveries.cdb
logging:
  enabled: true
  provider: std
  file: canetrack.log
`,
			expect: canetrack.Config{
				Address: "localhost",
				Port:    9000,
				URIBase: "/api",
				DB: canetrack.Database{
					Type:     canetrack.DatabaseFile,
					DataDir:  filepath.FromSlash("data/store"),
					DataFile: "deliveries.cdb",
				},
				Log:    canetrack.LogConfig{Enabled: true, Provider: canetrack.StdLog, File: "canetrack.log"},
				Format: canetrack.YAML,
			},
		},
		{
			name:    "full json",
			file:    "canetrack.json",
			content: `{"listen": ":8081", "base": "/", "db": {"type": "sqlite", "dir": "data"}, "logging": {"enabled": true, "provider": "jellog"}}`,
			expect: canetrack.Config{
				Port:    8081,
				URIBase: "/",
				DB:      canetrack.Database{Type: canetrack.DatabaseSQLite, DataDir: "data"},
				Log:     canetrack.LogConfig{Enabled: true, Provider: canetrack.Jellog},
				Format:  canetrack.JSON,
			},
		},
		{
			name:    "empty yaml file",
			file:    "canetrack.yaml",
			content: "",
			expect:  canetrack.Config{Format: canetrack.YAML},
		},
		{
			name:    "inmem db only",
			file:    "canetrack.yml",
			content: "db:\n  type: inmem\n",
			expect: canetrack.Config{
				DB:     canetrack.Database{Type: canetrack.DatabaseInMemory},
				Format: canetrack.YAML,
			},
		},
		{
			name:              "unsupported extension",
			file:              "canetrack.toml",
			content:           "listen = ':8080'",
			expectErrContains: "incompatible format",
		},
		{
			name:              "unknown yaml key",
			file:              "canetrack.yml",
			content:           "listen: \":8080\"\ncolor: blue\n",
			expectErrContains: "color",
		},
		{
			name:              "unknown json key",
			file:              "canetrack.json",
			content:           `{"color": "blue"}`,
			expectErrContains: "color",
		},
		{
			name:              "listen without port",
			file:              "canetrack.yml",
			content:           "listen: localhost\n",
			expectErrContains: "listen",
		},
		{
			name:              "listen with bad port",
			file:              "canetrack.yml",
			content:           "listen: localhost:http\n",
			expectErrContains: "not a valid port number",
		},
		{
			name:              "bad db type",
			file:              "canetrack.yml",
			content:           "db:\n  type: postgres\n",
			expectErrContains: "db: type",
		},
		{
			name:              "bad log provider",
			file:              "canetrack.yml",
			content:           "logging:\n  enabled: true\n  provider: zap\n",
			expectErrContains: "logging: provider",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			file := writeFile(t, tc.file, tc.content)

			actual, err := Load(file)

			if tc.expectErrContains != "" {
				assert.ErrorContains(err, tc.expectErrContains)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Load_missingFile(t *testing.T) {
	assert := assert.New(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))

	assert.ErrorIs(err, os.ErrNotExist)
}

func Test_Dump(t *testing.T) {
	testCases := []struct {
		name string
		cfg  canetrack.Config
		file string
	}{
		{
			name: "unloaded config dumps as yaml",
			cfg: canetrack.Config{
				Address: "127.0.0.1",
				Port:    8080,
				URIBase: "/tracker",
				DB:      canetrack.Database{Type: canetrack.DatabaseSQLite, DataDir: "data"},
				Log:     canetrack.LogConfig{Enabled: true, Provider: canetrack.Jellog, File: "out.log"},
			},
			file: "dumped.yml",
		},
		{
			name: "json config dumps as json",
			cfg: canetrack.Config{
				Port:   9090,
				DB:     canetrack.Database{Type: canetrack.DatabaseFile, DataDir: "data", DataFile: "x.cdb"},
				Format: canetrack.JSON,
			},
			file: "dumped.json",
		},
		{
			name: "zero config",
			cfg:  canetrack.Config{},
			file: "dumped.yaml",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			data := Dump(tc.cfg)
			file := writeFile(t, tc.file, string(data))

			reloaded, err := Load(file)
			if !assert.NoError(err) {
				return
			}

			expect := tc.cfg
			expect.Format = DetectFormat(tc.file)
			assert.Equal(expect, reloaded)
		})
	}
}

func Test_DetectFormat(t *testing.T) {
	testCases := []struct {
		name   string
		file   string
		expect canetrack.Format
	}{
		{
			name:   ".yml single file",
			file:   "config.yml",
			expect: canetrack.YAML,
		},
		{
			name:   ".yaml multi-dir rel path",
			file:   "path/to/config.yaml",
			expect: canetrack.YAML,
		},
		{
			name:   ".YML abs path",
			file:   "/etc/path/to/config.YML",
			expect: canetrack.YAML,
		},
		{
			name:   ".YaMl",
			file:   "someConfigFile.YaMl",
			expect: canetrack.YAML,
		},
		{
			name:   ".jsn",
			file:   "config.jsn",
			expect: canetrack.JSON,
		},
		{
			name:   ".json",
			file:   "path/to/config.json",
			expect: canetrack.JSON,
		},
		{
			name:   ".jSoN",
			file:   "someConfigFile.jSoN",
			expect: canetrack.JSON,
		},
		{
			name:   "invalid file",
			file:   "someConfigFile.txt",
			expect: canetrack.NoFormat,
		},
		{
			name:   "no extension",
			file:   "canetrack",
			expect: canetrack.NoFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := DetectFormat(tc.file)

			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_ConnectorRegistry_List(t *testing.T) {
	regWithInmem := &ConnectorRegistry{DisableDefaults: true}
	regWithInmem.initDefaults()
	regWithInmem.reg[canetrack.DatabaseInMemory] = func(db canetrack.Database) (dao.Store, error) { return nil, nil }

	testCases := []struct {
		name   string
		cr     *ConnectorRegistry
		expect []canetrack.DBType
	}{
		{
			name:   "zero registry has all built-in engines",
			cr:     &ConnectorRegistry{},
			expect: []canetrack.DBType{canetrack.DatabaseFile, canetrack.DatabaseInMemory, canetrack.DatabaseSQLite},
		},
		{
			name:   "DisableDefaults has nothing",
			cr:     &ConnectorRegistry{DisableDefaults: true},
			expect: []canetrack.DBType{},
		},
		{
			name:   "DisableDefaults with one added",
			cr:     regWithInmem,
			expect: []canetrack.DBType{canetrack.DatabaseInMemory},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.cr.List()

			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_ConnectorRegistry_Register(t *testing.T) {
	dummyConnector := func(db canetrack.Database) (dao.Store, error) { return nil, nil }

	testCases := []struct {
		name      string
		cr        *ConnectorRegistry
		engine    canetrack.DBType
		connector Connector

		expectErrContains string
	}{
		{
			name:      "normal add",
			cr:        &ConnectorRegistry{DisableDefaults: true},
			engine:    canetrack.DatabaseSQLite,
			connector: dummyConnector,
		},
		{
			name:      "conflict with built-in",
			cr:        &ConnectorRegistry{},
			engine:    canetrack.DatabaseSQLite,
			connector: dummyConnector,

			expectErrContains: "already has a registered connector",
		},
		{
			name:      "unsupported DB type",
			cr:        &ConnectorRegistry{DisableDefaults: true},
			engine:    canetrack.DatabaseNone,
			connector: dummyConnector,

			expectErrContains: "is not a supported DB type",
		},
		{
			name:      "nil connector",
			cr:        &ConnectorRegistry{DisableDefaults: true},
			engine:    canetrack.DatabaseInMemory,
			connector: nil,

			expectErrContains: "connector function cannot be nil",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.cr.Register(tc.engine, tc.connector)

			if tc.expectErrContains == "" {
				assert.NoError(actual)
				assert.Contains(tc.cr.reg, tc.engine)
			} else {
				assert.ErrorContains(actual, tc.expectErrContains)
			}
		})
	}
}

func Test_ConnectorRegistry_Connect(t *testing.T) {
	t.Run("registered connector is called", func(t *testing.T) {
		assert := assert.New(t)

		var connectorWasCalled bool
		registry := &ConnectorRegistry{DisableDefaults: true}
		err := registry.Register(canetrack.DatabaseInMemory, func(db canetrack.Database) (dao.Store, error) {
			connectorWasCalled = true
			return inmem.NewStore(dao.Seed{}), nil
		})
		if !assert.NoError(err) {
			return
		}

		store, err := registry.Connect(canetrack.Database{Type: canetrack.DatabaseInMemory})

		if !assert.NoError(err) {
			return
		}
		assert.NotNil(store)
		assert.True(connectorWasCalled, "connector function was not called")
	})

	t.Run("no connector for type", func(t *testing.T) {
		assert := assert.New(t)

		registry := &ConnectorRegistry{DisableDefaults: true}

		_, err := registry.Connect(canetrack.Database{Type: canetrack.DatabaseInMemory})

		assert.ErrorContains(err, "has no registered connector")
	})

	t.Run("invalid database", func(t *testing.T) {
		assert := assert.New(t)

		_, err := Connect(canetrack.Database{Type: canetrack.DatabaseSQLite})

		assert.ErrorContains(err, "DataDir not set")
	})
}

func Test_Connect(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name   string
		db     canetrack.Database
		expect dao.Store
	}{
		{
			name:   "inmem",
			db:     canetrack.Database{Type: canetrack.DatabaseInMemory},
			expect: &inmem.Store{},
		},
		{
			name:   "sqlite",
			db:     canetrack.Database{Type: canetrack.DatabaseSQLite, DataDir: filepath.Join(dir, "sqlite")},
			expect: &sqlite.Store{},
		},
		{
			name:   "file",
			db:     canetrack.Database{Type: canetrack.DatabaseFile, DataDir: filepath.Join(dir, "file"), DataFile: "test.cdb"},
			expect: &filedb.Store{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			store, err := Connect(tc.db)
			if !assert.NoError(err) {
				return
			}
			defer store.Close()

			assert.IsType(tc.expect, store)
		})
	}
}
