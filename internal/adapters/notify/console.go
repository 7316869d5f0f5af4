package notify

// console.go: salida de la CLI: tablas (tablewriter) o JSON.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Formatos de salida.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Console renderiza snapshots, mercados y decisiones.
type Console struct {
	out    io.Writer
	format string
}

// NewConsole crea una consola que escribe a stdout.
func NewConsole(format string) *Console {
	return NewConsoleWriter(os.Stdout, format)
}

// NewConsoleWriter crea una consola sobre cualquier writer (tests).
func NewConsoleWriter(w io.Writer, format string) *Console {
	if format != FormatJSON {
		format = FormatTable
	}
	return &Console{out: w, format: format}
}

// RenderSnapshot imprime cuenta, posiciones y registros descartados.
func (c *Console) RenderSnapshot(s domain.PortfolioSnapshot) error {
	if c.format == FormatJSON {
		return c.json(s)
	}

	fmt.Fprintf(c.out, "\n[%s] %s %s  cash:%s  realized:%s  unrealized:%s  value:$%.2f\n",
		s.TakenAt.Format("15:04:05"), s.Venue, s.Identity,
		money(s.CashBalance), money(s.RealizedPnl), money(s.UnrealizedPnl), s.TotalValue())

	if len(s.Positions) == 0 {
		fmt.Fprintln(c.out, "  no open positions")
	} else {
		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Market", "Outcome", "Shares", "Avg", "Mark", "Value", "uPnL")
		for i, p := range s.Positions {
			table.Append(
				fmt.Sprintf("%d", i+1),
				marketLabel(p.Question, p.MarketID),
				truncate(p.OutcomeLabel, 20),
				fmt.Sprintf("%.2f", p.NetShares),
				p.AvgEntryPrice.Format(4),
				p.MarkPrice.Format(4),
				fmt.Sprintf("$%.2f", p.EstimatedValue()),
				money(p.UnrealizedPnl),
			)
		}
		table.Render()
	}

	if len(s.Skipped) > 0 {
		fmt.Fprintf(c.out, "  skipped %d record(s):\n", len(s.Skipped))
		for _, sk := range s.Skipped {
			fmt.Fprintf(c.out, "    %s: %s\n", sk.Record, sk.Reason)
		}
	}
	fmt.Fprintln(c.out)
	return nil
}

// RenderMarket imprime el detalle de un mercado con sus outcomes.
func (c *Console) RenderMarket(m domain.CanonicalMarket) error {
	if c.format == FormatJSON {
		return c.json(m)
	}

	fmt.Fprintf(c.out, "\n%s\n", m.Question)
	fmt.Fprintf(c.out, "  id: %s  type: %s  prob: %s\n", m.ID, m.OutcomeType, m.Probability.Format(4))
	if m.URL != "" {
		fmt.Fprintf(c.out, "  url: %s\n", m.URL)
	}
	fmt.Fprintf(c.out, "  liquidity: $%.0f  vol24h: $%.0f  closes: %s\n",
		m.Liquidity, m.Volume24h, dateLabel(m.CloseTime))
	if m.Resolved {
		fmt.Fprintln(c.out, "  RESOLVED")
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Outcome", "Answer ID", "Prob")
	for _, a := range m.Outcomes() {
		table.Append(truncate(a.Label, 40), a.ID, fmt.Sprintf("%.4f", a.Probability))
	}
	table.Render()
	fmt.Fprintln(c.out)
	return nil
}

// RenderMarkets imprime una lista compacta de mercados.
func (c *Console) RenderMarkets(ms []domain.CanonicalMarket) error {
	if c.format == FormatJSON {
		return c.json(ms)
	}
	if len(ms) == 0 {
		fmt.Fprintf(c.out, "[%s] no markets found\n", time.Now().Format("15:04:05"))
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "ID", "Type", "Prob", "Vol24h", "Closes")
	for i, m := range ms {
		table.Append(
			fmt.Sprintf("%d", i+1),
			marketLabel(m.Question, m.ID),
			m.ID,
			string(m.OutcomeType),
			m.Probability.Format(3),
			fmt.Sprintf("$%.0f", m.Volume24h),
			dateLabel(m.CloseTime),
		)
	}
	table.Render()
	return nil
}

// RenderDecision imprime el veredicto del guard.
func (c *Console) RenderDecision(d domain.OrderDecision) error {
	if c.format == FormatJSON {
		return c.json(d)
	}
	if d.Approved {
		fmt.Fprintf(c.out, "APPROVED %s -> %.4f shares, notional $%.2f\n", d.Intent, d.Shares, d.Notional)
		return nil
	}
	fmt.Fprintf(c.out, "REJECTED %s: %s\n", d.Intent, d.Reason)
	return nil
}

// RenderReceipt imprime la confirmación del venue.
func (c *Console) RenderReceipt(r domain.OrderReceipt) error {
	if c.format == FormatJSON {
		return c.json(r)
	}
	id := r.OrderID
	if id == "" {
		id = "-"
	}
	fmt.Fprintf(c.out, "PLACED on %s: order %s status=%s shares=%.2f notional=$%.2f\n",
		r.Venue, id, r.Status, r.Shares, r.Notional)
	return nil
}

// RenderDecisions imprime el historial del journal.
func (c *Console) RenderDecisions(ds []domain.OrderDecision) error {
	if c.format == FormatJSON {
		return c.json(ds)
	}
	if len(ds) == 0 {
		fmt.Fprintln(c.out, "no decisions recorded")
		return nil
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Side", "Market", "Outcome", "Price", "Result", "Notional", "Reason")
	for _, d := range ds {
		result := "REJECTED"
		if d.Approved {
			result = "APPROVED"
		}
		table.Append(
			d.DecidedAt.Local().Format("01-02 15:04:05"),
			string(d.Intent.Side),
			truncate(d.Intent.MarketID, 16),
			d.Intent.OutcomeKey(),
			fmt.Sprintf("%.4f", d.Intent.Price),
			result,
			fmt.Sprintf("$%.2f", d.Notional),
			truncate(d.Reason, 40),
		)
	}
	table.Render()
	return nil
}

func (c *Console) json(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("notify: encode json: %w", err)
	}
	return nil
}

// --- helpers ---

func money(v domain.OptionalFloat) string {
	if !v.Valid {
		return "-"
	}
	if v.Value < 0 {
		return fmt.Sprintf("-$%.2f", -v.Value)
	}
	return fmt.Sprintf("$%.2f", v.Value)
}

func marketLabel(question, id string) string {
	if question != "" {
		return truncate(question, 38)
	}
	if len(id) > 14 {
		return id[:12] + "..."
	}
	return id
}

func dateLabel(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
