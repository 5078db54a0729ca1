package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Credentials are supplied by the caller; absence triggers the manual login path.
type Credentials struct {
	Email    string
	Password string
}

// SessionCookie is a single persisted browser cookie.
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
}

// Session is the durable authentication artifact that lets subsequent
// process runs skip interactive login.
type Session struct {
	Cookies       []SessionCookie `json:"cookies"`
	ShopID        string          `json:"shop_id,omitempty"`
	Authenticated bool            `json:"-"`
}

// Attachment is a file referenced from a conversation message.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Conversation represents one row of the storefront's message inbox.
type Conversation struct {
	ID         string `json:"id"`
	Customer   string `json:"customer_name"`
	Preview    string `json:"preview_text"`
	IsUnread   bool   `json:"is_unread"`
	Timestamp  string `json:"timestamp_raw"`
	NeedsQuote bool   `json:"needs_quote"`
	DetailURL  string `json:"detail_url,omitempty"`
}

// Message is a single message inside a conversation thread.
type Message struct {
	Sender      string       `json:"sender"`
	Content     string       `json:"content"`
	Timestamp   string       `json:"timestamp_raw"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// CustomerInfo identifies the customer on a conversation detail page.
type CustomerInfo struct {
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// OrderInfo links a conversation to an order when the page shows one.
type OrderInfo struct {
	OrderNumber string `json:"order_number,omitempty"`
	OrderURL    string `json:"order_url,omitempty"`
}

// ConversationDetail is the full thread view of one conversation.
type ConversationDetail struct {
	Messages []Message    `json:"messages"`
	Customer CustomerInfo `json:"customer_info"`
	Order    OrderInfo    `json:"order_info"`
}

// OrderItem is one line item on an order.
type OrderItem struct {
	Title         string `json:"title"`
	Quantity      int    `json:"quantity"`
	Customization string `json:"customization,omitempty"`
}

// Order represents one extracted storefront order.
type Order struct {
	OrderID         string      `json:"order_id"`
	BuyerName       string      `json:"buyer_name"`
	Status          string      `json:"status"`
	Total           string      `json:"total"`
	Items           []OrderItem `json:"items"`
	OrderDate       string      `json:"order_date"`
	Is3DPrint       bool        `json:"is_3d_print"`
	NeedsProcessing bool        `json:"needs_processing"`
}

// MessagesSummary is the payload of the messages-updated event.
type MessagesSummary struct {
	Total         int `json:"total"`
	Unread        int `json:"unread"`
	QuoteRequests int `json:"quote_requests"`
}

// OrdersSummary is the payload of the orders-updated event.
type OrdersSummary struct {
	Total       int `json:"total"`
	New         int `json:"new"`
	PrintOrders int `json:"print_orders"`
}

// Config holds the configuration for the agent
type Config struct {
	BaseURL         string        `yaml:"base_url"`
	SessionFile     string        `yaml:"session_file"`
	Headless        bool          `yaml:"headless"`
	UserAgent       string        `yaml:"user_agent"`
	NavTimeout      time.Duration `yaml:"nav_timeout"`
	RenderDelay     time.Duration `yaml:"render_delay"`
	TwoFactorWait   time.Duration `yaml:"two_factor_wait"`
	ManualLoginWait time.Duration `yaml:"manual_login_wait"`
	MessageInterval time.Duration `yaml:"message_interval"`
	OrderInterval   time.Duration `yaml:"order_interval"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.etsy.com",
		SessionFile:     "session.json",
		Headless:        false,
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		NavTimeout:      30 * time.Second,
		RenderDelay:     2 * time.Second,
		TwoFactorWait:   120 * time.Second,
		ManualLoginWait: 5 * time.Minute,
		MessageInterval: 60 * time.Second,
		OrderInterval:   120 * time.Second,
	}
}

// UnmarshalYAML merges a config file over whatever values the receiver
// already holds, so unset keys keep their defaults. Durations are
// written in time.ParseDuration form ("90s", "2m").
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		BaseURL         string `yaml:"base_url"`
		SessionFile     string `yaml:"session_file"`
		Headless        *bool  `yaml:"headless"`
		UserAgent       string `yaml:"user_agent"`
		NavTimeout      string `yaml:"nav_timeout"`
		RenderDelay     string `yaml:"render_delay"`
		TwoFactorWait   string `yaml:"two_factor_wait"`
		ManualLoginWait string `yaml:"manual_login_wait"`
		MessageInterval string `yaml:"message_interval"`
		OrderInterval   string `yaml:"order_interval"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.BaseURL != "" {
		c.BaseURL = raw.BaseURL
	}
	if raw.SessionFile != "" {
		c.SessionFile = raw.SessionFile
	}
	if raw.Headless != nil {
		c.Headless = *raw.Headless
	}
	if raw.UserAgent != "" {
		c.UserAgent = raw.UserAgent
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{raw.NavTimeout, &c.NavTimeout},
		{raw.RenderDelay, &c.RenderDelay},
		{raw.TwoFactorWait, &c.TwoFactorWait},
		{raw.ManualLoginWait, &c.ManualLoginWait},
		{raw.MessageInterval, &c.MessageInterval},
		{raw.OrderInterval, &c.OrderInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q in config: %w", d.raw, err)
		}
		*d.dst = parsed
	}
	return nil
}

// LoadConfig reads a YAML config file over the defaults. A missing file
// just returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
