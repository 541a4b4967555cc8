package presencecli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"presencebot/internal/chat"
	"presencebot/internal/config"
	"presencebot/internal/engine"
	"presencebot/internal/envutil"
	"presencebot/internal/ingress"
	"presencebot/internal/ledger"
	"presencebot/internal/reminder"
	"presencebot/internal/security"
	"presencebot/internal/store"
)

var ErrUsage = errors.New("usage")

func Execute(args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:])
	case "run":
		return runCommand(args[1:])
	case "zones":
		return zonesCommand(args[1:])
	case "snapshot":
		return snapshotCommand(args[1:])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: presencebot <setup|run|zones|snapshot> [...]", ErrUsage)
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	botToken := fs.String("bot-token", "", "bot API token")
	envPath := fs.String("env-file", ".env", "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *botToken == "" {
		return errors.New("--bot-token is required")
	}

	secret, err := security.RandomToken(32)
	if err != nil {
		return err
	}

	values := map[string]string{
		"BOT_TOKEN":      *botToken,
		"WEBHOOK_SECRET": secret,
		"ADDR":           ":8080",
		"CONFIG_PATH":    "config.yaml",
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *envPath)
	return nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return errors.New("BOT_TOKEN is required")
	}

	cfg, err := config.Load(envOrDefault("CONFIG_PATH", "config.yaml"))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := ensureParentDirs(cfg.WorkbookPath); err != nil {
		return err
	}
	wb := store.NewExcelWorkbook(cfg.WorkbookPath)
	if err := wb.Init(ctx); err != nil {
		return fmt.Errorf("initialize workbook: %w", err)
	}

	zones := ledger.NewZoneRegistry(wb, cfg.StaticZones(), cfg.RadiusMeters)
	if err := zones.Refresh(ctx); err != nil {
		return fmt.Errorf("load zones: %w", err)
	}

	clock := func() time.Time { return time.Now().In(cfg.Location()) }
	attendance := ledger.NewAttendance(wb, clock)
	leave := ledger.NewLeaveLog(wb, clock)

	sender := chat.NewBotAPI(token)
	scheduler := reminder.New(sender, attendance, reminder.Config{
		MorningAt:   cfg.Triggers.MorningAt,
		AfternoonAt: cfg.Triggers.AfternoonAt,
		Location:    cfg.Location(),
	})
	eng := engine.New(sender, zones, attendance, leave, engine.Options{
		IsAdmin:        cfg.IsAdmin,
		Clock:          clock,
		ForceReminders: scheduler.FireNow,
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- ingress.Run(ctx, eng, ingress.Config{
			Addr:          envOrDefault("ADDR", ":8080"),
			WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		})
	}()
	go func() { errCh <- scheduler.Run(ctx) }()

	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		cancel()
	}
	return nil
}

func zonesCommand(args []string) error {
	if len(args) < 1 || args[0] != "import" {
		return fmt.Errorf("%w: presencebot zones import <file.xls|file.xlsx>", ErrUsage)
	}
	fs := flag.NewFlagSet("zones import", flag.ContinueOnError)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: presencebot zones import <file.xls|file.xlsx>", ErrUsage)
	}
	path := fs.Arg(0)

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(envOrDefault("CONFIG_PATH", "config.yaml"))
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := store.LoadSheetRows(filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctx := context.Background()
	wb := store.NewExcelWorkbook(cfg.WorkbookPath)
	if err := wb.Init(ctx); err != nil {
		return fmt.Errorf("initialize workbook: %w", err)
	}
	zones := ledger.NewZoneRegistry(wb, cfg.StaticZones(), cfg.RadiusMeters)
	if err := zones.Refresh(ctx); err != nil {
		return err
	}

	added, err := zones.ImportRows(ctx, rows)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d zones from %s\n", added, path)
	return nil
}

func snapshotCommand(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	out := fs.String("o", "", "output path (defaults to <workbook>.xz)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(envOrDefault("CONFIG_PATH", "config.yaml"))
	if err != nil {
		return err
	}

	target := *out
	if target == "" {
		target = cfg.WorkbookPath + ".xz"
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()

	wb := store.NewExcelWorkbook(cfg.WorkbookPath)
	if err := wb.Snapshot(f); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", target)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
