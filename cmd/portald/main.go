package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tenderhub/internal/config"
	"tenderhub/internal/export"
	"tenderhub/internal/kvstore"
	"tenderhub/internal/mda"
	"tenderhub/internal/objstore"
	"tenderhub/internal/portal"
	"tenderhub/internal/search"
)

func main() {
	mode := flag.String("mode", "run", "run | seed | export | stats | snapshot")
	report := flag.String("report", "audit", "export mode: audit | tenders")
	format := flag.String("format", "csv", "export mode: json | csv | pdf")
	mdaID := flag.String("mda", "", "scope tenders export or stats to one MDA")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("backend connection failed: %v", err)
	}
	defer closeBackend()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}

	p, err := portal.New(ctx, cfg, backend, meiliClient)
	if err != nil {
		log.Fatalf("portal init failed: %v", err)
	}
	defer p.Close()

	switch *mode {
	case "run":
		runPortal(p)
	case "seed":
		if err := seed(ctx, p); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	case "export":
		if err := runExport(ctx, p, cfg, *report, *format, *mdaID); err != nil {
			log.Fatalf("export failed: %v", err)
		}
	case "stats":
		if err := printStats(ctx, p, *mdaID); err != nil {
			log.Fatalf("stats failed: %v", err)
		}
	case "snapshot":
		if err := p.Archive.EnsureRepo("TenderHub"); err != nil {
			log.Fatalf("archive init failed: %v", err)
		}
		p.TakeSnapshot(ctx)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

// openBackend picks persistent storage: Postgres when a database URL is
// set, otherwise Redis, otherwise in-memory.
func openBackend(ctx context.Context, cfg config.Config) (kvstore.Backend, func(), error) {
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		log.Printf("Using PostgreSQL key-value backend")
		backend, err := kvstore.NewPostgresBackend(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis key-value backend")
		backend, err := kvstore.NewRedisBackend(cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	}
	log.Printf("WARNING: no storage configured, data is in-memory only")
	return kvstore.NewMemoryBackend(), func() {}, nil
}

func runPortal(p *portal.Portal) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.ReindexSearch(ctx); err != nil {
		log.Printf("WARNING: search reindex: %v", err)
	}

	log.Printf("TenderHub portal running (monitor every %s, snapshot every %s)",
		p.Config.MonitorInterval, p.Config.SnapshotInterval)
	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("portal stopped: %v", err)
	}
	log.Printf("shutting down")
}

func runExport(ctx context.Context, p *portal.Portal, cfg config.Config, report, format, mdaID string) error {
	result, err := p.Export.Export(ctx, export.Request{
		Report: export.Report(report),
		Format: export.Format(format),
		MDAID:  mdaID,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(result.Filename, result.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", result.Filename, err)
	}
	log.Printf("wrote %s (%d bytes)", result.Filename, len(result.Data))

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		store, err := objstore.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return fmt.Errorf("object store: %w", err)
		}
		objectName, err := store.SaveReport(ctx, result)
		if err != nil {
			return fmt.Errorf("upload report: %w", err)
		}
		log.Printf("uploaded %s", objectName)
	}
	return nil
}

func printStats(ctx context.Context, p *portal.Portal, mdaID string) error {
	if mdaID != "" {
		stats, err := p.MDAs.MDAStats(ctx, mdaID)
		if err != nil {
			return err
		}
		fmt.Printf("MDA %s\n", mdaID)
		fmt.Printf("  tenders: %d total, %d active\n", stats.TotalTenders, stats.ActiveTenders)
		fmt.Printf("  value:   %.2f\n", stats.TotalValue)
		fmt.Printf("  efficiency: %.1f%%\n", stats.Efficiency*100)
		return nil
	}

	stats, err := p.MDAs.SystemStats(ctx)
	if err != nil {
		return err
	}
	audits, err := p.Audit.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("MDAs:    %d (%d active)\n", stats.TotalMDAs, stats.ActiveMDAs)
	fmt.Printf("Tenders: %d, total value %.2f\n", stats.TotalTenders, stats.TotalValue)
	fmt.Printf("Audit:   %d entries\n", audits.TotalLogs)
	return nil
}

// seed loads a demo dataset for local development.
func seed(ctx context.Context, p *portal.Portal) error {
	works, err := p.MDAs.CreateMDA(ctx, mda.MDA{
		Name:         "Ministry of Works",
		Type:         mda.TypeMinistry,
		Description:  "Federal roads, bridges and public buildings",
		ContactEmail: "info@works.gov",
		Settings: mda.Settings{
			BudgetYear:  "2026",
			TotalBudget: 25_000_000,
		},
	})
	if err != nil {
		return fmt.Errorf("seed mda: %w", err)
	}

	health, err := p.MDAs.CreateMDA(ctx, mda.MDA{
		Name:        "Primary Healthcare Agency",
		Type:        mda.TypeAgency,
		Description: "Primary healthcare delivery",
		Settings: mda.Settings{
			BudgetYear:  "2026",
			TotalBudget: 8_000_000,
		},
	})
	if err != nil {
		return fmt.Errorf("seed mda: %w", err)
	}

	tenders := []mda.Tender{
		{MDAID: works.ID, Title: "Highway Rehabilitation Phase 2", Category: "construction", Value: 4_200_000, Status: mda.TenderPublished},
		{MDAID: works.ID, Title: "Bridge Structural Survey", Category: "consultancy", Value: 350_000, Status: mda.TenderClosed},
		{MDAID: health.ID, Title: "Vaccine Cold Chain Equipment", Category: "goods", Value: 1_100_000, Status: mda.TenderPublished},
	}
	for _, t := range tenders {
		if _, err := p.MDAs.CreateTender(ctx, t); err != nil {
			return fmt.Errorf("seed tender: %w", err)
		}
	}

	if _, err := p.MDAs.CreateAdmin(ctx, mda.Admin{
		MDAID: works.ID,
		Email: "amina.bello@works.gov",
		Role:  "mda_admin",
	}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := p.Creds.Register(ctx, "amina.bello@works.gov", "changeme-now", works.ID, "mda_admin"); err != nil {
		return fmt.Errorf("seed credentials: %w", err)
	}

	log.Printf("seeded 2 MDAs, %d tenders, 1 admin", len(tenders))
	return nil
}
