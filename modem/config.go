package modem

import (
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/sbdgw/imt"
)

// Config holds the settings of a Modem. Zero values are replaced by
// defaults when the Modem is created.
type Config struct {
	Dialer Dialer

	// CommandTimeout bounds the wait for a reply to a single request.
	CommandTimeout time.Duration
	// SendTimeout bounds SendMessage when the context has no deadline.
	SendTimeout time.Duration
	// ReceiveTimeout bounds ReceiveMessage once a transfer has started.
	ReceiveTimeout time.Duration
	// PollInterval paces every polling loop, including Loop.
	PollInterval time.Duration

	MOQueueSize int
	MTQueueSize int
	// PayloadSize is the largest message body in either direction.
	PayloadSize int
	// APIRetries is the number of API version negotiation attempts.
	APIRetries int

	// VerifyMTCRC rejects incoming messages whose trailer does not match.
	VerifyMTCRC bool

	Callbacks Callbacks
	Logger    *slog.Logger
}

func (c *Config) setDefaults() {
	if c.CommandTimeout == 0 {
		c.CommandTimeout = time.Second
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = time.Minute
	}
	if c.ReceiveTimeout == 0 {
		c.ReceiveTimeout = time.Minute
	}
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.MOQueueSize == 0 {
		c.MOQueueSize = 4
	}
	if c.MTQueueSize == 0 {
		c.MTQueueSize = 4
	}
	if c.PayloadSize == 0 {
		c.PayloadSize = imt.DefaultPayloadSize
	}
	if c.APIRetries == 0 {
		c.APIRetries = 2
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	for name, d := range map[string]time.Duration{
		"command timeout": c.CommandTimeout,
		"send timeout":    c.SendTimeout,
		"receive timeout": c.ReceiveTimeout,
		"poll interval":   c.PollInterval,
	} {
		if d < 0 {
			return fmt.Errorf("%w: negative %s", ErrInvalidConfig, name)
		}
	}
	for name, n := range map[string]int{
		"MO queue size": c.MOQueueSize,
		"MT queue size": c.MTQueueSize,
		"payload size":  c.PayloadSize,
		"API retries":   c.APIRetries,
	} {
		if n < 0 {
			return fmt.Errorf("%w: negative %s", ErrInvalidConfig, name)
		}
	}
	return nil
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.config.CommandTimeout = d
	return b
}

func (b *ConfigBuilder) WithSendTimeout(d time.Duration) *ConfigBuilder {
	b.config.SendTimeout = d
	return b
}

func (b *ConfigBuilder) WithReceiveTimeout(d time.Duration) *ConfigBuilder {
	b.config.ReceiveTimeout = d
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.PollInterval = d
	return b
}

// WithQueueSizes sets the number of outgoing and incoming slots.
func (b *ConfigBuilder) WithQueueSizes(mo, mt int) *ConfigBuilder {
	b.config.MOQueueSize = mo
	b.config.MTQueueSize = mt
	return b
}

func (b *ConfigBuilder) WithPayloadSize(n int) *ConfigBuilder {
	b.config.PayloadSize = n
	return b
}

func (b *ConfigBuilder) WithAPIRetries(n int) *ConfigBuilder {
	b.config.APIRetries = n
	return b
}

func (b *ConfigBuilder) WithMTCRCVerification(enabled bool) *ConfigBuilder {
	b.config.VerifyMTCRC = enabled
	return b
}

func (b *ConfigBuilder) WithCallbacks(cb Callbacks) *ConfigBuilder {
	b.config.Callbacks = cb
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

// Build validates the collected settings and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
