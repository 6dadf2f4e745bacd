package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for ops-admin
type Config struct {
	Google    GoogleConfig    `yaml:"google"`
	Documents DocumentsConfig `yaml:"documents"`
	SES       SESConfig       `yaml:"ses"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Lock      LockConfig      `yaml:"lock"`
	Run       RunConfig       `yaml:"run"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GoogleConfig holds Google Workspace credentials and sheet layout
type GoogleConfig struct {
	CredentialsFile string        `yaml:"credentials_file"` // service account or authorized-user JSON
	DownHours       SheetConfig   `yaml:"down_hours"`
	NoticeTracker   TrackerConfig `yaml:"notice_tracker"`
	InstructionDoc  string        `yaml:"instruction_doc"` // doc holding the email templates
	PDFFolderID     string        `yaml:"pdf_folder_id"`   // Drive folder for sent notices
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	MaxRetries      int           `yaml:"max_retries"`
}

// Timeout returns the configured timeout as a duration
func (c GoogleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SheetConfig describes the down-hours spreadsheet
type SheetConfig struct {
	SpreadsheetID string        `yaml:"spreadsheet_id"`
	Range         string        `yaml:"range"`      // e.g. "sheet1!A:O"
	SheetName     string        `yaml:"sheet_name"` // prefix for write-back ranges
	Columns       ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig maps write-back fields onto sheet column letters
type ColumnsConfig struct {
	LastName         string `yaml:"last_name"`
	FirstName        string `yaml:"first_name"`
	Email            string `yaml:"email"`
	House            string `yaml:"house"`
	ExistingContract string `yaml:"existing_contract"`
	Action           string `yaml:"action"`
}

// TrackerConfig describes the 15-day notice spreadsheet
type TrackerConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name"`
	SheetID       int64  `yaml:"sheet_id"`   // numeric tab id used for row inserts
	InsertRow     int    `yaml:"insert_row"` // 1-based row the new entry lands on
}

// DocumentsConfig holds the Google Docs template IDs
type DocumentsConfig struct {
	ConditionalContract            string `yaml:"conditional_contract"`
	PotentialTerminationEligible   string `yaml:"potential_termination_reinstatement_eligible"`
	PotentialTerminationIneligible string `yaml:"potential_termination_reinstatement_ineligible"`
	PendingTerminationEligible     string `yaml:"pending_termination_notice_reinstatement_eligible"`
	PendingTerminationIneligible   string `yaml:"pending_termination_notice_reinstatement_ineligible"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ArchiveConfig holds the S3 archive for rendered notices
type ArchiveConfig struct {
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
	Region     string `yaml:"region"`
	AWSProfile string `yaml:"aws_profile"`
}

// Enabled reports whether notices are archived to S3
func (c ArchiveConfig) Enabled() bool { return c.Bucket != "" }

// LedgerConfig selects where notice-sent markers are kept
type LedgerConfig struct {
	Backend     string `yaml:"backend"` // "dynamodb", "postgres", "memory" or "none"
	TableName   string `yaml:"table_name"`
	Region      string `yaml:"region"`
	DatabaseURL string `yaml:"database_url"`
}

// LockConfig holds the run lock settings
type LockConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	Key        string `yaml:"key"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the lock TTL as a duration
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RunConfig holds per-run behaviour
type RunConfig struct {
	SafeMode      bool   `yaml:"safe_mode"`      // confirm every email before it is sent
	OpsSupervisor string `yaml:"ops_supervisor"` // signs the notices
	OutputDir     string `yaml:"output_dir"`     // where filled PDFs are written
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether member emails are masked in logs (default true)
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{Run: RunConfig{SafeMode: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Google.DownHours.Range == "" {
		cfg.Google.DownHours.Range = "sheet1!A:O"
	}
	if cfg.Google.DownHours.SheetName == "" {
		cfg.Google.DownHours.SheetName = "sheet1"
	}
	cols := &cfg.Google.DownHours.Columns
	if cols.LastName == "" {
		cols.LastName = "C"
	}
	if cols.FirstName == "" {
		cols.FirstName = "D"
	}
	if cols.Email == "" {
		cols.Email = "E"
	}
	if cols.House == "" {
		cols.House = "F"
	}
	if cols.ExistingContract == "" {
		cols.ExistingContract = "H"
	}
	if cols.Action == "" {
		cols.Action = "I"
	}
	if cfg.Google.NoticeTracker.SheetName == "" {
		cfg.Google.NoticeTracker.SheetName = "Sheet1"
	}
	if cfg.Google.NoticeTracker.InsertRow == 0 {
		cfg.Google.NoticeTracker.InsertRow = 3
	}
	if cfg.Google.TimeoutSeconds == 0 {
		cfg.Google.TimeoutSeconds = 30
	}
	if cfg.Google.MaxRetries == 0 {
		cfg.Google.MaxRetries = 3
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.FromName == "" {
		cfg.SES.FromName = "BSC Operations"
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = cfg.SES.Region
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "notices"
	}
	cfg.Ledger.Backend = strings.ToLower(strings.TrimSpace(cfg.Ledger.Backend))
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = "none"
	}
	if cfg.Ledger.TableName == "" {
		cfg.Ledger.TableName = "down_hours_notice_ledger"
	}
	if cfg.Ledger.Region == "" {
		cfg.Ledger.Region = cfg.SES.Region
	}
	if cfg.Lock.Key == "" {
		cfg.Lock.Key = "ops-admin:down-hours"
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 3600
	}
	if cfg.Run.OutputDir == "" {
		cfg.Run.OutputDir = "notices"
	}
	if cfg.Run.OpsSupervisor == "" {
		cfg.Run.OpsSupervisor = "Alex"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.Google.CredentialsFile = v
	}
	if v := os.Getenv("DOWN_HOURS_SPREADSHEET_ID"); v != "" {
		cfg.Google.DownHours.SpreadsheetID = v
	}
	if v := os.Getenv("NOTICE_TRACKER_SPREADSHEET_ID"); v != "" {
		cfg.Google.NoticeTracker.SpreadsheetID = v
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if v := os.Getenv("OPS_FROM_EMAIL"); v != "" {
		cfg.SES.FromEmail = v
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Ledger.DatabaseURL = dbURL
		if cfg.Ledger.Backend == "none" {
			cfg.Ledger.Backend = "postgres"
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Lock.RedisAddr = v
	}
	if v := os.Getenv("OPS_SAFE_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Run.SafeMode = b
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

var columnPattern = regexp.MustCompile(`^[A-Z]{1,2}$`)

// Validate checks the settings every run depends on
func (c *Config) Validate() error {
	if c.Google.DownHours.SpreadsheetID == "" {
		return fmt.Errorf("google.down_hours.spreadsheet_id is required")
	}
	cols := c.Google.DownHours.Columns
	for name, col := range map[string]string{
		"last_name":         cols.LastName,
		"first_name":        cols.FirstName,
		"email":             cols.Email,
		"house":             cols.House,
		"existing_contract": cols.ExistingContract,
		"action":            cols.Action,
	} {
		if !columnPattern.MatchString(col) {
			return fmt.Errorf("google.down_hours.columns.%s: %q is not a column letter", name, col)
		}
	}
	switch c.Ledger.Backend {
	case "none", "memory", "dynamodb":
	case "postgres":
		if c.Ledger.DatabaseURL == "" {
			return fmt.Errorf("ledger.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("ledger.backend: unknown backend %q", c.Ledger.Backend)
	}
	if c.Google.NoticeTracker.InsertRow < 2 {
		return fmt.Errorf("google.notice_tracker.insert_row must be below the header")
	}
	return nil
}

// DocumentFor returns the template document for a key used by the notice
// package (e.g. "conditional_contract").
func (c DocumentsConfig) DocumentFor(key string) (string, bool) {
	ids := map[string]string{
		"conditional_contract":                                c.ConditionalContract,
		"potential_termination_reinstatement_eligible":        c.PotentialTerminationEligible,
		"potential_termination_reinstatement_ineligible":      c.PotentialTerminationIneligible,
		"pending_termination_notice_reinstatement_eligible":   c.PendingTerminationEligible,
		"pending_termination_notice_reinstatement_ineligible": c.PendingTerminationIneligible,
	}
	id, ok := ids[key]
	return id, ok && id != ""
}
