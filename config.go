package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the modem (e.g. 230400)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// LogFormat selects the log output, "json" or "text"
	LogFormat string `yaml:"log_format"`
	// SendTimeout bounds a blocking send when the request has no deadline
	SendTimeout time.Duration `yaml:"send_timeout"`
	// ReceiveTimeout bounds a blocking receive when the request has no deadline
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
	// VerifyMTCRC drops incoming messages whose CRC trailer does not match
	VerifyMTCRC bool `yaml:"verify_mt_crc"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	switch config.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("unknown log format %q", config.LogFormat)
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 230400
		c.LogLevel = "info"
		c.LogFormat = "json"
		c.SendTimeout = time.Minute
		c.ReceiveTimeout = time.Minute
		return nil
	}
}

// WithFile loads configuration from a YAML file. Keys missing from the file
// keep their current value. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if format := os.Getenv("LOG_FORMAT"); format != "" {
			c.LogFormat = format
		}

		var errs []error
		if timeout := os.Getenv("SEND_TIMEOUT"); timeout != "" {
			d, err := time.ParseDuration(timeout)
			errs = append(errs, err)
			c.SendTimeout = d
		}

		if timeout := os.Getenv("RECEIVE_TIMEOUT"); timeout != "" {
			d, err := time.ParseDuration(timeout)
			errs = append(errs, err)
			c.ReceiveTimeout = d
		}

		if verify := os.Getenv("VERIFY_MT_CRC"); verify != "" {
			v, err := strconv.ParseBool(verify)
			errs = append(errs, err)
			c.VerifyMTCRC = v
		}

		return errors.Join(errs...)
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "log-format":
				c.LogFormat = f.Value.String()
			case "verify-mt-crc":
				if v, err := strconv.ParseBool(f.Value.String()); err == nil {
					c.VerifyMTCRC = v
				}
			}
		})
		return nil
	}
}
