package model

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Attachment behaviour when the primary document's id is still unknown
// after polling gave up.
const (
	OnTimeoutSkip           = "skip"
	OnTimeoutUploadUnlinked = "upload-unlinked"
)

// Mailbox kinds.
const (
	MailboxLocal = "local"
	MailboxIMAP  = "imap"
)

// PaperlessConfig holds the document server connection settings.
type PaperlessConfig struct {
	// URL is the server base URL, e.g. https://paperless.example.com.
	URL string `mapstructure:"url" yaml:"url"`

	// Token is the API token. When empty the keyring entry is used.
	Token string `mapstructure:"token" yaml:"token"`

	// DefaultTags are tag names applied to every upload.
	DefaultTags []string `mapstructure:"default_tags" yaml:"default_tags"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
	PageSize    int           `mapstructure:"page_size" yaml:"page_size"`
}

// RenderConfig holds document rendering settings.
type RenderConfig struct {
	Strategy   string        `mapstructure:"strategy" yaml:"strategy"`
	ServiceURL string        `mapstructure:"service_url" yaml:"service_url"`
	ChromePath string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PollConfig bounds task-completion polling.
type PollConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay" yaml:"delay"`
}

// MailTagConfig describes the mail tag set on uploaded messages.
type MailTagConfig struct {
	Key   string `mapstructure:"key" yaml:"key"`
	Label string `mapstructure:"label" yaml:"label"`
	Color string `mapstructure:"color" yaml:"color"`
}

// WorkflowConfig holds the names and policies used by the email workflow.
type WorkflowConfig struct {
	OnPrimaryTimeout  string        `mapstructure:"on_primary_timeout" yaml:"on_primary_timeout"`
	RelatedField      string        `mapstructure:"related_field" yaml:"related_field"`
	DirectionField    string        `mapstructure:"direction_field" yaml:"direction_field"`
	Directions        []string      `mapstructure:"directions" yaml:"directions"`
	EmailDocumentType string        `mapstructure:"email_document_type" yaml:"email_document_type"`
	MailTag           MailTagConfig `mapstructure:"mail_tag" yaml:"mail_tag"`
}

// CorrespondentMapping assigns a correspondent to mail from one address.
type CorrespondentMapping struct {
	Email           string `mapstructure:"email" yaml:"email"`
	CorrespondentID int    `mapstructure:"correspondent_id" yaml:"correspondent_id"`
}

// IMAPConfig holds IMAP mailbox settings. The password lives in the keyring.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
	Folder   string `mapstructure:"folder" yaml:"folder"`
}

// MailboxConfig selects the mail host.
type MailboxConfig struct {
	Kind   string     `mapstructure:"kind" yaml:"kind"`
	DBPath string     `mapstructure:"db_path" yaml:"db_path"`
	IMAP   IMAPConfig `mapstructure:"imap" yaml:"imap"`
}

// SMTPConfig holds the local drop box settings. When Username is set,
// clients must authenticate with PLAIN; the password lives in the keyring.
type SMTPConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Username string `mapstructure:"username" yaml:"username"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Paperless      PaperlessConfig        `mapstructure:"paperless" yaml:"paperless"`
	Render         RenderConfig           `mapstructure:"render" yaml:"render"`
	Poll           PollConfig             `mapstructure:"poll" yaml:"poll"`
	Workflow       WorkflowConfig         `mapstructure:"workflow" yaml:"workflow"`
	Correspondents []CorrespondentMapping `mapstructure:"correspondents" yaml:"correspondents"`
	Mailbox        MailboxConfig          `mapstructure:"mailbox" yaml:"mailbox"`
	SMTP           SMTPConfig             `mapstructure:"smtp" yaml:"smtp"`
}

// configDir returns ~/.config/paperless-upload, or "." when the home
// directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "paperless-upload")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/paperless-upload/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Paperless: PaperlessConfig{
			DefaultTags: []string{},
			HTTPTimeout: 30 * time.Second,
			PageSize:    1000,
		},
		Render: RenderConfig{
			Strategy: string(StrategyLocalPDF),
			Timeout:  60 * time.Second,
		},
		Poll: PollConfig{
			MaxAttempts: 60,
			Delay:       time.Second,
		},
		Workflow: WorkflowConfig{
			OnPrimaryTimeout:  OnTimeoutSkip,
			RelatedField:      "Dazugehörende Dokumente",
			DirectionField:    "Richtung",
			Directions:        []string{"Eingang", "Ausgang"},
			EmailDocumentType: "E-Mail",
			MailTag: MailTagConfig{
				Key:   "paperless",
				Label: "Paperless",
				Color: "#17a2b8",
			},
		},
		Correspondents: []CorrespondentMapping{},
		Mailbox: MailboxConfig{
			Kind:   MailboxLocal,
			DBPath: filepath.Join(configDir(), "mailbox.db"),
			IMAP: IMAPConfig{
				Port:   993,
				TLS:    true,
				Folder: "INBOX",
			},
		},
		SMTP: SMTPConfig{Addr: "127.0.0.1:2525"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("paperless.url", "")
	v.SetDefault("paperless.token", "")
	v.SetDefault("paperless.default_tags", d.Paperless.DefaultTags)
	v.SetDefault("paperless.http_timeout", d.Paperless.HTTPTimeout)
	v.SetDefault("paperless.page_size", d.Paperless.PageSize)
	v.SetDefault("render.strategy", d.Render.Strategy)
	v.SetDefault("render.service_url", "")
	v.SetDefault("render.chrome_path", "")
	v.SetDefault("render.timeout", d.Render.Timeout)
	v.SetDefault("poll.max_attempts", d.Poll.MaxAttempts)
	v.SetDefault("poll.delay", d.Poll.Delay)
	v.SetDefault("workflow.on_primary_timeout", d.Workflow.OnPrimaryTimeout)
	v.SetDefault("workflow.related_field", d.Workflow.RelatedField)
	v.SetDefault("workflow.direction_field", d.Workflow.DirectionField)
	v.SetDefault("workflow.directions", d.Workflow.Directions)
	v.SetDefault("workflow.email_document_type", d.Workflow.EmailDocumentType)
	v.SetDefault("workflow.mail_tag.key", d.Workflow.MailTag.Key)
	v.SetDefault("workflow.mail_tag.label", d.Workflow.MailTag.Label)
	v.SetDefault("workflow.mail_tag.color", d.Workflow.MailTag.Color)
	v.SetDefault("mailbox.kind", d.Mailbox.Kind)
	v.SetDefault("mailbox.db_path", d.Mailbox.DBPath)
	v.SetDefault("mailbox.imap.host", "")
	v.SetDefault("mailbox.imap.port", d.Mailbox.IMAP.Port)
	v.SetDefault("mailbox.imap.username", "")
	v.SetDefault("mailbox.imap.tls", d.Mailbox.IMAP.TLS)
	v.SetDefault("mailbox.imap.folder", d.Mailbox.IMAP.Folder)
	v.SetDefault("smtp.addr", d.SMTP.Addr)
	v.SetDefault("smtp.username", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with PAPERLESS_UPLOAD_ override file values.
// If the file does not exist, defaults plus environment are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PAPERLESS_UPLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Paperless.URL = strings.TrimRight(strings.TrimSpace(cfg.Paperless.URL), "/")
	cfg.Paperless.DefaultTags = splitTags(cfg.Paperless.DefaultTags)

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("paperless", cfg.Paperless)
	v.Set("render", cfg.Render)
	v.Set("poll", cfg.Poll)
	v.Set("workflow", cfg.Workflow)
	v.Set("correspondents", cfg.Correspondents)
	v.Set("mailbox", cfg.Mailbox)
	v.Set("smtp", cfg.SMTP)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// splitTags accepts both list entries and a single comma separated entry,
// which is how the tags arrive from environment variables.
func splitTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, tag := range strings.Split(entry, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				out = append(out, tag)
			}
		}
	}
	return out
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ConfigurationError{Field: field, Reason: "not set"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ConfigurationError{Field: field, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigurationError{Field: field, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ConfigurationError{Field: field, Reason: "missing host"}
	}
	return nil
}

// Settings is the validated, effective configuration for one upload
// invocation.
type Settings struct {
	BaseURL     string
	Token       string
	DefaultTags []string
	HTTPTimeout time.Duration
	PageSize    int

	Render   RenderConfig
	Poll     PollConfig
	Workflow WorkflowConfig

	Correspondents []CorrespondentMapping
}

// Settings validates cfg and resolves the token. lookupToken is consulted
// when the config carries no token; it may be nil. It returns an empty
// string when no token is stored, and any error it returns is reported.
func (cfg *AppConfig) Settings(lookupToken func() (string, error)) (*Settings, error) {
	if err := ValidateURL("paperless.url", cfg.Paperless.URL); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(cfg.Paperless.Token)
	if token == "" && lookupToken != nil {
		t, err := lookupToken()
		if err != nil {
			return nil, &ConfigurationError{Field: "paperless.token", Reason: "reading keyring: " + err.Error()}
		}
		token = strings.TrimSpace(t)
	}
	if token == "" {
		return nil, &ConfigurationError{Field: "paperless.token", Reason: "not set"}
	}

	if cfg.Render.ServiceURL != "" {
		if err := ValidateURL("render.service_url", cfg.Render.ServiceURL); err != nil {
			return nil, err
		}
	}

	switch cfg.Workflow.OnPrimaryTimeout {
	case OnTimeoutSkip, OnTimeoutUploadUnlinked:
	default:
		return nil, &ConfigurationError{
			Field:  "workflow.on_primary_timeout",
			Reason: fmt.Sprintf("unknown policy %q", cfg.Workflow.OnPrimaryTimeout),
		}
	}
	if strings.TrimSpace(cfg.Workflow.RelatedField) == "" {
		return nil, &ConfigurationError{Field: "workflow.related_field", Reason: "not set"}
	}

	s := &Settings{
		BaseURL:        strings.TrimRight(cfg.Paperless.URL, "/"),
		Token:          token,
		DefaultTags:    cfg.Paperless.DefaultTags,
		HTTPTimeout:    cfg.Paperless.HTTPTimeout,
		PageSize:       cfg.Paperless.PageSize,
		Render:         cfg.Render,
		Poll:           cfg.Poll,
		Workflow:       cfg.Workflow,
		Correspondents: cfg.Correspondents,
	}
	if s.PageSize <= 0 {
		s.PageSize = 1000
	}
	if s.Poll.MaxAttempts <= 0 {
		s.Poll.MaxAttempts = 60
	}
	return s, nil
}

// CorrespondentFor returns the mapped correspondent id for a sender address.
func (s *Settings) CorrespondentFor(address string) (int, bool) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return 0, false
	}
	for _, m := range s.Correspondents {
		if strings.ToLower(strings.TrimSpace(m.Email)) == address {
			return m.CorrespondentID, true
		}
	}
	return 0, false
}
