package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"adjudge/internal/engine"
	"adjudge/internal/notify"
)

// NotifyService posts a judgment summary to the chat channel. Delivery is
// best-effort: failures are logged and never surface to the engine caller.
type NotifyService struct {
	Analysis *AnalysisService
	Sender   *notify.Client
	Logger   *zap.Logger
}

// SendSummary builds and sends the daily judgment digest. The returned error
// covers only pipeline failures; a webhook failure is swallowed after
// logging, since notifications are at-least-once best-effort.
func (s *NotifyService) SendSummary(ctx context.Context) error {
	if s == nil || s.Analysis == nil {
		return nil
	}
	full, err := s.Analysis.GetFullAnalysisData(ctx, "")
	if err != nil {
		return err
	}
	text := formatSummary(full)
	if s.Sender == nil {
		return nil
	}
	if err := s.Sender.Send(ctx, text); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("judgment summary send failed", zap.Error(err))
		}
		return nil
	}
	if s.Logger != nil {
		s.Logger.Info("judgment summary sent", zap.Int("campaigns", len(full.Pairs)))
	}
	return nil
}

func formatSummary(full *FullAnalysis) string {
	counts := map[engine.Judgment]int{}
	var best, worst *CampaignJudgment
	for i := range full.Pairs {
		p := &full.Pairs[i]
		counts[p.Judgment]++
		if best == nil || p.Trailing.Profit.GreaterThan(best.Trailing.Profit) {
			best = p
		}
		if worst == nil || p.Trailing.Profit.LessThan(worst.Trailing.Profit) {
			worst = p
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Campaign digest %s\n", full.AsOf.Format("2006-01-02"))
	fmt.Fprintf(&b, "spend %s / revenue %s / profit %s\n",
		full.Summary.Spend.StringFixed(0),
		full.Summary.Revenue.StringFixed(0),
		full.Summary.Profit.StringFixed(0),
	)
	if full.Summary.ROAS.Valid {
		fmt.Fprintf(&b, "roas %s\n", full.Summary.ROAS.Decimal.StringFixed(2))
	} else {
		b.WriteString("roas n/a\n")
	}
	fmt.Fprintf(&b, "continue %d / check %d / replace %d / stop %d\n",
		counts[engine.JudgmentContinue],
		counts[engine.JudgmentCheck],
		counts[engine.JudgmentReplace],
		counts[engine.JudgmentStop],
	)
	if best != nil {
		fmt.Fprintf(&b, "best: %s (profit %s)\n", best.CampaignName, best.Trailing.Profit.StringFixed(0))
	}
	if worst != nil {
		fmt.Fprintf(&b, "worst: %s (profit %s)", worst.CampaignName, worst.Trailing.Profit.StringFixed(0))
	}
	return b.String()
}
