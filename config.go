package mqttv3

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport names accepted in ClientConfig.Transport.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
	TransportUnix      = "unix"
)

// DefaultPort is the IANA port for MQTT without TLS.
const DefaultPort uint16 = 1883

// ProxyFromEnv selects ProxyFromEnvironment in ClientConfig.Proxy.
const ProxyFromEnv = "env"

var (
	ErrConfigBroker    = errors.New("config: broker is required")
	ErrConfigTransport = errors.New("config: unknown transport")
)

// WillConfig is the YAML form of Will.
type WillConfig struct {
	Topic   string `yaml:"topic"`
	Message string `yaml:"message"`
	QoS     byte   `yaml:"qos"`
	Retain  bool   `yaml:"retain"`
}

// ClientConfig describes a broker connection in a YAML file.
//
//	broker: test.mosquitto.org
//	port: 1883
//	transport: tcp
//	client_id: MAMA12354
//	keepalive: 60
//	log_level: info
type ClientConfig struct {
	Broker       string        `yaml:"broker"`
	Port         uint16        `yaml:"port"`
	Transport    string        `yaml:"transport"`
	WSPath       string        `yaml:"ws_path"`
	Proxy        string        `yaml:"proxy"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ClientID     string        `yaml:"client_id"`
	CleanSession bool          `yaml:"clean_session"`
	KeepAlive    uint16        `yaml:"keepalive"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Will         *WillConfig   `yaml:"will"`
	LogLevel     string        `yaml:"log_level"`
	AutoPing     bool          `yaml:"auto_ping"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML config data and fills in defaults.
func ParseConfig(data []byte) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *ClientConfig) setDefaults() {
	if cfg.Transport == "" {
		cfg.Transport = TransportTCP
	}

	if cfg.Port == 0 && cfg.Transport == TransportTCP {
		cfg.Port = DefaultPort
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelInfo.String()
	}
}

// Validate checks fields that can be checked without connecting.
func (cfg *ClientConfig) Validate() error {
	if cfg.Broker == "" {
		return ErrConfigBroker
	}

	switch cfg.Transport {
	case TransportTCP, TransportWebSocket, TransportUnix:
	default:
		return fmt.Errorf("%w: %q", ErrConfigTransport, cfg.Transport)
	}

	if cfg.ClientID != "" {
		if err := ValidateClientID(cfg.ClientID); err != nil {
			return err
		}
	}

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}

// Level returns the parsed log level.
func (cfg *ClientConfig) Level() LogLevel {
	level, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return LogLevelInfo
	}
	return level
}

// ConnectConfig converts the file config into Connect input. An empty
// client id is replaced by a generated one.
func (cfg *ClientConfig) ConnectConfig(handler EventHandler) *ConnectConfig {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = GenerateClientID()
	}

	cc := &ConnectConfig{
		Address:      cfg.Broker,
		Port:         cfg.Port,
		ClientID:     clientID,
		CleanSession: cfg.CleanSession,
		Username:     cfg.Username,
		OnEvent:      handler,
	}

	if cfg.Password != "" {
		cc.Password = []byte(cfg.Password)
	}

	if w := cfg.Will; w != nil {
		cc.Will = &Will{
			Topic:   w.Topic,
			Message: []byte(w.Message),
			QoS:     w.QoS,
			Retain:  w.Retain,
		}
	}

	return cc
}

// Dialer builds the dialer for the configured transport and proxy.
func (cfg *ClientConfig) Dialer() (Dialer, error) {
	switch cfg.Transport {
	case TransportUnix:
		return NewUnixDialer(), nil
	case TransportWebSocket:
		d := NewWSDialer(cfg.WSPath)
		if cfg.DialTimeout > 0 {
			d.Dialer.HandshakeTimeout = cfg.DialTimeout
		}
		if cfg.Proxy != "" {
			pd, err := cfg.proxyDialer(d.URL(cfg.Broker, cfg.Port))
			if err != nil {
				return nil, err
			}
			if pd != nil {
				d.Dialer.NetDialContext = pd.DialContext
			}
		}
		return d, nil
	}

	if cfg.Proxy != "" {
		pd, err := cfg.proxyDialer("mqtt://" + hostPort(cfg.Broker, cfg.Port))
		if err != nil {
			return nil, err
		}
		if pd != nil {
			if cfg.DialTimeout > 0 {
				pd.forward.Timeout = cfg.DialTimeout
			}
			return pd, nil
		}
	}

	return &TCPDialer{Timeout: cfg.DialTimeout}, nil
}

// proxyDialer returns nil when the environment selects no proxy for target.
func (cfg *ClientConfig) proxyDialer(target string) (*ProxyDialer, error) {
	if cfg.Proxy != ProxyFromEnv {
		return NewProxyDialer(cfg.Proxy, "", "")
	}

	u, err := ProxyFromEnvironment(target)
	if err != nil || u == nil {
		return nil, err
	}

	var username, password string
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}

	return NewProxyDialer(u.String(), username, password)
}
