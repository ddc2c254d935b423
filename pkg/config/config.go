package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is an immutable snapshot of the process environment. A worker
// launched outside a supervisor legitimately has none of the supervisor
// fields set; that is standalone mode, not an error.
type Config struct {
	ProcessID       string
	SupervisorHost  string
	SupervisorPort  string
	SupervisorToken string
	SharedDir       string
	LogLevel        string

	// TLS material for the supervisor channel. CA file switches the
	// channel to HTTPS; cert and key additionally enable mTLS.
	SupervisorCAFile string
	ClientCertFile   string
	ClientKeyFile    string
}

// Load reads the worker environment. Environment variables:
//
//	WORKERLINK_PROCESS_ID       identity of this process
//	WORKERLINK_SUPERVISOR_HOST  supervisor hostname
//	WORKERLINK_SUPERVISOR_PORT  supervisor port
//	WORKERLINK_SUPERVISOR_TOKEN bearer token for the secure channel
//	WORKERLINK_SHARED_DIR       shared temp directory for peer mailboxes
//	WORKERLINK_LOG_LEVEL        log level (debug, info, warn, error)
//	WORKERLINK_SUPERVISOR_CA_FILE  CA certificate to verify the supervisor
//	WORKERLINK_CLIENT_CERT_FILE    client certificate for mTLS
//	WORKERLINK_CLIENT_KEY_FILE     client key for mTLS
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()
	v.BindEnv("process_id", "WORKERLINK_PROCESS_ID")
	v.BindEnv("supervisor_host", "WORKERLINK_SUPERVISOR_HOST")
	v.BindEnv("supervisor_port", "WORKERLINK_SUPERVISOR_PORT")
	v.BindEnv("supervisor_token", "WORKERLINK_SUPERVISOR_TOKEN")
	v.BindEnv("shared_dir", "WORKERLINK_SHARED_DIR")
	v.BindEnv("log_level", "WORKERLINK_LOG_LEVEL")
	v.BindEnv("supervisor_ca_file", "WORKERLINK_SUPERVISOR_CA_FILE")
	v.BindEnv("client_cert_file", "WORKERLINK_CLIENT_CERT_FILE")
	v.BindEnv("client_key_file", "WORKERLINK_CLIENT_KEY_FILE")

	return Config{
		ProcessID:       strings.TrimSpace(v.GetString("process_id")),
		SupervisorHost:  strings.TrimSpace(v.GetString("supervisor_host")),
		SupervisorPort:  strings.TrimSpace(v.GetString("supervisor_port")),
		SupervisorToken: v.GetString("supervisor_token"),
		SharedDir:       v.GetString("shared_dir"),
		LogLevel:        v.GetString("log_level"),

		SupervisorCAFile: v.GetString("supervisor_ca_file"),
		ClientCertFile:   v.GetString("client_cert_file"),
		ClientKeyFile:    v.GetString("client_key_file"),
	}
}

// SupervisorConfigured reports whether the secure channel can be opened.
func (c Config) SupervisorConfigured() bool {
	return c.SupervisorHost != "" && c.SupervisorPort != ""
}

// TLSConfigured reports whether the supervisor channel should use
// HTTPS.
func (c Config) TLSConfigured() bool {
	return c.SupervisorCAFile != "" || (c.ClientCertFile != "" && c.ClientKeyFile != "")
}

// SharedDirUsable reports whether the shared mailbox directory exists
// and is a directory. A missing directory silently disables the
// mailbox transport.
func (c Config) SharedDirUsable() bool {
	if c.SharedDir == "" {
		return false
	}
	info, err := os.Stat(c.SharedDir)
	return err == nil && info.IsDir()
}
