// Package portal wires the persistence, notification and reporting
// services into one composition root and runs the background loops.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tenderhub/internal/archive"
	"tenderhub/internal/audit"
	"tenderhub/internal/auth"
	"tenderhub/internal/config"
	"tenderhub/internal/creds"
	"tenderhub/internal/email"
	"tenderhub/internal/export"
	"tenderhub/internal/inbox"
	"tenderhub/internal/kvstore"
	"tenderhub/internal/mda"
	"tenderhub/internal/search"
	"tenderhub/internal/util"
)

// Portal is the composition root. Every service shares the one key-value
// facade, so a backend outage degrades all of them together.
type Portal struct {
	Config  config.Config
	KV      *kvstore.Facade
	Audit   *audit.Store
	MDAs    *mda.Service
	Inbox   *inbox.Service
	Monitor *inbox.Monitor
	Creds   *creds.Service
	Search  *search.Service
	Export  *export.Service
	Archive *archive.Service
	Email   *email.Service

	detach []func()
}

// New assembles the portal over the given backend. Meilisearch is optional;
// pass a nil *search.Meili to run with the local fallback only.
func New(ctx context.Context, cfg config.Config, backend kvstore.Backend, meili *search.Meili) (*Portal, error) {
	facade := kvstore.New(ctx, backend)

	audits := audit.NewStore(facade, cfg.MaxAuditLogs)
	mdas := mda.NewService(facade, nil)
	messages := inbox.NewService(facade)
	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})

	p := &Portal{
		Config:  cfg,
		KV:      facade,
		Audit:   audits,
		MDAs:    mdas,
		Inbox:   messages,
		Monitor: inbox.NewMonitor(facade, messages),
		Creds:   creds.NewService(facade),
		Search:  search.NewService(meili, search.NewLocal(mdas)),
		Export:  export.NewService(audits, mdas),
		Archive: archive.New(cfg.ArchiveDir),
		Email:   mailer,
	}

	p.detach = append(p.detach, messages.OnEvent(p.bridgeToAudit))
	p.detach = append(p.detach, mailer.AttachTo(messages))

	return p, nil
}

// Close detaches event subscriptions. The facade itself has no resources
// to release; backends are closed by their owners.
func (p *Portal) Close() {
	for _, fn := range p.detach {
		fn()
	}
	p.detach = nil
}

// bridgeToAudit records notification deliveries in the audit trail.
// Urgent messages escalate to HIGH severity.
func (p *Portal) bridgeToAudit(event inbox.Event) {
	if event.Type != inbox.EventMessageAdded {
		return
	}
	severity := audit.SeverityLow
	if event.Message.Category == inbox.CategoryUrgent {
		severity = audit.SeverityHigh
	}
	_, err := p.Audit.AddLog(context.Background(), audit.Entry{
		User:     "system",
		UserRole: "system",
		Action:   "notification_sent",
		Entity:   "message",
		EntityID: event.Message.ID,
		Details:  fmt.Sprintf("%s notification to %s: %s", event.Message.Type, event.Recipient, event.Message.Title),
		Severity: severity,
		Metadata: map[string]string{"recipient": event.Recipient, "messageType": event.Message.Type},
	})
	if err != nil {
		log.Printf("portal: audit bridge: %v", err)
	}
}

// SignIn verifies credentials, issues a session token and records the
// current user so services can resolve an implicit recipient.
func (p *Portal) SignIn(ctx context.Context, emailAddr, password string) (string, auth.Claims, error) {
	identity, err := p.Creds.Verify(ctx, emailAddr, password)
	if err != nil {
		_, _ = p.Audit.AddLog(ctx, audit.Entry{
			User:     emailAddr,
			UserRole: "unknown",
			Action:   "sign_in_failed",
			Entity:   "session",
			Details:  "invalid credentials",
			Severity: audit.SeverityMedium,
		})
		return "", auth.Claims{}, err
	}

	claims := auth.Claims{
		Sub:  identity.Email,
		Name: identity.Email,
		Role: identity.Role,
		MDA:  identity.MDAID,
		JTI:  util.NewID("jti"),
		Exp:  time.Now().Add(p.Config.SessionTTL).Unix(),
	}
	token, err := auth.IssueToken([]byte(p.Config.TokenSecret), claims)
	if err != nil {
		return "", auth.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	current, _ := json.Marshal(map[string]string{
		"email": identity.Email,
		"role":  identity.Role,
		"mdaId": identity.MDAID,
	})
	p.KV.SetItem(ctx, "currentUser", string(current))

	_, _ = p.Audit.AddLog(ctx, audit.Entry{
		User:     identity.Email,
		UserRole: identity.Role,
		Action:   "sign_in",
		Entity:   "session",
		EntityID: auth.HashToken(token)[:12],
		Details:  "signed in",
		Severity: audit.SeverityLow,
	})
	return token, claims, nil
}

// SignOut clears the current user record.
func (p *Portal) SignOut(ctx context.Context) {
	p.KV.RemoveItem(ctx, "currentUser")
}

// ValidateSession parses and checks a session token.
func (p *Portal) ValidateSession(token string) (auth.Claims, error) {
	return auth.ParseToken([]byte(p.Config.TokenSecret), token)
}

// Run drives the background loops until ctx is cancelled: the tender
// status monitor and the periodic compliance snapshot.
func (p *Portal) Run(ctx context.Context) error {
	if err := p.Archive.EnsureRepo("TenderHub"); err != nil {
		return fmt.Errorf("init archive: %w", err)
	}

	go p.Monitor.Run(ctx, p.Config.MonitorInterval)

	ticker := time.NewTicker(p.Config.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.TakeSnapshot(ctx)
		}
	}
}

// TakeSnapshot commits the current MDA registry dump to the compliance
// archive. An unchanged registry is not an error.
func (p *Portal) TakeSnapshot(ctx context.Context) {
	payload, err := p.MDAs.ExportData(ctx)
	if err != nil {
		log.Printf("portal: snapshot export: %v", err)
		return
	}
	commit, err := p.Archive.CommitSnapshot(payload, "TenderHub", "Scheduled registry snapshot")
	if err != nil {
		if !errors.Is(err, archive.ErrNoChanges) {
			log.Printf("portal: snapshot commit: %v", err)
		}
		return
	}
	log.Printf("portal: snapshot committed %s", commit.Hash[:8])
}

// ReindexSearch pushes the full registry into the search index.
func (p *Portal) ReindexSearch(ctx context.Context) error {
	tenders, err := p.MDAs.Tenders(ctx, "")
	if err != nil {
		return fmt.Errorf("load tenders: %w", err)
	}
	mdas, err := p.MDAs.GetAllMDAs(ctx)
	if err != nil {
		return fmt.Errorf("load mdas: %w", err)
	}

	tenderRecords := make([]search.TenderRecord, 0, len(tenders))
	for _, t := range tenders {
		tenderRecords = append(tenderRecords, search.TenderRecord{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Category:    t.Category,
			MDAID:       t.MDAID,
			Status:      string(t.Status),
			Value:       t.Value,
		})
	}
	mdaRecords := make([]search.MDARecord, 0, len(mdas))
	for _, m := range mdas {
		mdaRecords = append(mdaRecords, search.MDARecord{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Type:        string(m.Type),
		})
	}
	p.Search.ReindexAll(tenderRecords, mdaRecords)
	return nil
}
