package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/gapi"
	"github.com/bsc-coop/ops-admin/internal/gdocs"
	"github.com/bsc-coop/ops-admin/internal/ledger"
	"github.com/bsc-coop/ops-admin/internal/pipeline"
	"github.com/bsc-coop/ops-admin/internal/pkg/distlock"
	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
	"github.com/bsc-coop/ops-admin/internal/ses"
	"github.com/bsc-coop/ops-admin/internal/sheets"
	"github.com/bsc-coop/ops-admin/internal/storage"
)

// app holds the clients one command invocation needs.
type app struct {
	cfg    *config.Config
	runID  string
	google *http.Client
	ledger ledger.Ledger
	closer func() error
	redis  *redis.Client
}

// loadConfig reads and validates the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	logger.SetRedactPII(cfg.Logging.Redact())
	return cfg, nil
}

// newApp loads config and opens the Google client and the ledger.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	google, err := gapi.NewHTTPClient(ctx, cfg.Google)
	if err != nil {
		return nil, err
	}
	l, closer, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, runID: uuid.NewString(), google: google, ledger: l, closer: closer}
	if cfg.Lock.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Lock.RedisAddr})
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.closer != nil {
		if err := a.closer(); err != nil {
			logger.Warn("ops-admin: closing ledger", "error", err)
		}
	}
}

// lock returns the run lock. Redis wins when configured; a Postgres ledger
// doubles as the lock store otherwise.
func (a *app) lock() distlock.DistLock {
	var db *sql.DB
	if pg, ok := a.ledger.(*ledger.Postgres); ok {
		db = pg.DB()
	}
	return distlock.NewLock(a.redis, db, a.cfg.Lock.Key, a.cfg.Lock.TTL())
}

func (a *app) sheet(ctx context.Context) (*sheets.Client, error) {
	return sheets.NewClient(ctx, a.cfg.Google.DownHours, gapi.Options(a.google)...)
}

// processor wires every collaborator of a run. The mailer is only built
// when send is true so a dry run needs no SES settings.
func (a *app) processor(ctx context.Context, safeMode, send bool) (*pipeline.Processor, error) {
	cfg := a.cfg
	sheet, err := a.sheet(ctx)
	if err != nil {
		return nil, err
	}
	deps := pipeline.Deps{
		Sheet:    sheet,
		Ledger:   a.ledger,
		Prompter: pipeline.NewTerminalPrompter(os.Stdin, os.Stdout),
	}
	if send {
		tracker, err := sheets.NewTracker(ctx, cfg.Google.NoticeTracker, gapi.Options(a.google)...)
		if err != nil {
			return nil, err
		}
		docs, err := gdocs.NewClient(ctx, gapi.Options(a.google)...)
		if err != nil {
			return nil, err
		}
		mailer, err := ses.NewClient(ctx, cfg.SES)
		if err != nil {
			return nil, err
		}
		archive, err := storage.NewArchive(ctx, cfg.Archive)
		if err != nil {
			return nil, err
		}
		deps.Tracker = tracker
		deps.Documents = docs
		deps.Mailer = mailer
		if cfg.Google.PDFFolderID != "" {
			deps.Uploader = docs
		}
		if archive != nil {
			deps.Archive = archive
		}
	}
	return pipeline.New(pipeline.Options{
		RunID:            a.runID,
		SpreadsheetID:    cfg.Google.DownHours.SpreadsheetID,
		InstructionDocID: cfg.Google.InstructionDoc,
		PDFFolderID:      cfg.Google.PDFFolderID,
		OutputDir:        cfg.Run.OutputDir,
		OpsSupervisor:    cfg.Run.OpsSupervisor,
		SafeMode:         safeMode,
		DocumentFor:      cfg.Documents.DocumentFor,
	}, deps), nil
}

// requireSendSettings reports the settings a live run needs beyond Validate.
func requireSendSettings(cfg *config.Config) error {
	switch {
	case cfg.Google.InstructionDoc == "":
		return fmt.Errorf("google.instruction_doc is required to send notices")
	case cfg.Google.NoticeTracker.SpreadsheetID == "":
		return fmt.Errorf("google.notice_tracker.spreadsheet_id is required to send notices")
	case cfg.SES.FromEmail == "":
		return fmt.Errorf("ses.from_email is required to send notices")
	}
	return nil
}
