// Package config loads runtime settings from flags, environment variables,
// .env files and an optional YAML file, in that order of precedence.
//
// Environment variable names match the ones the deployment already uses
// (ENCRYPTION_KEY, USE_NFS, HDFS_NAMENODE_URL, ...). Every key can also be
// set as SMILESTORE_<SECTION>_<NAME>.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys.
const (
	KeyEncryptionKey      = "encryption.key"
	KeyAllowEphemeral     = "encryption.allow_ephemeral"
	KeyLocalPath          = "storage.local_path"
	KeyNetShareEnabled    = "netshare.enabled"
	KeyNetShareServer     = "netshare.server"
	KeyNetShareSharePath  = "netshare.share_path"
	KeyNetShareMountPoint = "netshare.mount_point"
	KeyNetShareDataPath   = "netshare.data_path"
	KeyNetShareOptions    = "netshare.options"
	KeyReplicationEnabled = "replication.enabled"
	KeyNamenodeURL        = "replication.namenode_url"
	KeyReplicationUser    = "replication.user"
	KeyReplicationRoot    = "replication.root"
	KeyReplicationFactor  = "replication.factor"
	KeyReplicationTimeout = "replication.timeout"
	KeyReplicationProbe   = "replication.probe_timeout"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
)

// EnvPrefix is the prefix for the SMILESTORE_* spelling of each key.
const EnvPrefix = "smilestore"

type binding struct {
	key, env string
	def      any
}

var bindings = []binding{
	{KeyEncryptionKey, "ENCRYPTION_KEY", ""},
	{KeyAllowEphemeral, "ALLOW_EPHEMERAL_KEY", false},
	{KeyLocalPath, "LOCAL_STORAGE_PATH", "./local_data"},
	{KeyNetShareEnabled, "USE_NFS", false},
	{KeyNetShareServer, "NFS_SERVER", ""},
	{KeyNetShareSharePath, "NFS_SHARE_PATH", "/eData"},
	{KeyNetShareMountPoint, "NFS_MOUNT_POINT", "/mnt/nfs"},
	{KeyNetShareDataPath, "NFS_DATA_PATH", "/mnt/nfs/smilelink/data"},
	{KeyNetShareOptions, "NFS_MOUNT_OPTIONS", ""},
	{KeyReplicationEnabled, "USE_HDFS_REPLICATION", false},
	{KeyNamenodeURL, "HDFS_NAMENODE_URL", "http://localhost:9870"},
	{KeyReplicationUser, "HDFS_USER", "hadoop"},
	{KeyReplicationRoot, "HDFS_REPLICATION_PATH", "/smilelink/data"},
	{KeyReplicationFactor, "HDFS_REPLICATION_FACTOR", 2},
	{KeyReplicationTimeout, "HDFS_TIMEOUT", 30 * time.Second},
	{KeyReplicationProbe, "HDFS_PROBE_TIMEOUT", 3 * time.Second},
	{KeyLogLevel, "LOG_LEVEL", "info"},
	{KeyLogFormat, "LOG_FORMAT", "console"},
}

// Config is the resolved configuration.
type Config struct {
	Encryption  Encryption
	Storage     Storage
	NetShare    NetShare
	Replication Replication
	Log         Log
}

type Encryption struct {
	Key            string
	AllowEphemeral bool
}

type Storage struct {
	LocalPath string
}

type NetShare struct {
	Enabled    bool
	Server     string
	SharePath  string
	MountPoint string
	DataPath   string
	Options    string
}

type Replication struct {
	Enabled      bool
	NamenodeURL  string
	User         string
	Root         string
	Factor       int
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// LoadEnvFiles loads .env then .env.local from the working directory.
// Variables already set in the environment win; missing files are ignored.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// NewViper returns a viper instance with every default and env binding in
// place. Callers may bind flags onto it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		_ = v.BindEnv(b.key, b.env)
	}
	return v
}

// Load reads the optional config file and resolves every key.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Encryption: Encryption{
			Key:            strings.TrimSpace(v.GetString(KeyEncryptionKey)),
			AllowEphemeral: v.GetBool(KeyAllowEphemeral),
		},
		Storage: Storage{
			LocalPath: v.GetString(KeyLocalPath),
		},
		NetShare: NetShare{
			Enabled:    v.GetBool(KeyNetShareEnabled),
			Server:     v.GetString(KeyNetShareServer),
			SharePath:  v.GetString(KeyNetShareSharePath),
			MountPoint: v.GetString(KeyNetShareMountPoint),
			DataPath:   v.GetString(KeyNetShareDataPath),
			Options:    v.GetString(KeyNetShareOptions),
		},
		Replication: Replication{
			Enabled:      v.GetBool(KeyReplicationEnabled),
			NamenodeURL:  v.GetString(KeyNamenodeURL),
			User:         v.GetString(KeyReplicationUser),
			Root:         v.GetString(KeyReplicationRoot),
			Factor:       v.GetInt(KeyReplicationFactor),
			Timeout:      v.GetDuration(KeyReplicationTimeout),
			ProbeTimeout: v.GetDuration(KeyReplicationProbe),
		},
		Log: Log{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.LocalPath == "" {
		errs = append(errs, errors.New("storage.local_path must not be empty"))
	}
	if c.NetShare.Enabled && c.NetShare.DataPath == "" {
		errs = append(errs, errors.New("netshare.data_path must be set when netshare is enabled"))
	}
	if c.Replication.Factor < 1 {
		errs = append(errs, fmt.Errorf("replication.factor must be at least 1, got %d", c.Replication.Factor))
	}
	if c.Replication.Enabled && c.Replication.NamenodeURL == "" {
		errs = append(errs, errors.New("replication.namenode_url must be set when replication is enabled"))
	}
	if c.Replication.Timeout < 0 || c.Replication.ProbeTimeout < 0 {
		errs = append(errs, errors.New("replication timeouts must not be negative"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// StoragePath returns where the entity store lives: the share's data path
// when the share is enabled and mounted, the local path otherwise.
func (c *Config) StoragePath(mounted bool) string {
	if c.NetShare.Enabled && mounted {
		return c.NetShare.DataPath
	}
	return c.Storage.LocalPath
}

// EnvName returns the deployment env var bound to key, or "".
func EnvName(key string) string {
	for _, b := range bindings {
		if b.key == key {
			return b.env
		}
	}
	return ""
}
