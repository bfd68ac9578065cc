package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"

	cl "panelprofits/internal/cli"
	"panelprofits/internal/engine"
	"panelprofits/internal/store"
	"panelprofits/internal/symbols"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// numericParams are generator inputs sent as JSON numbers; everything else stays a string.
var numericParams = map[string]bool{
	"volume":        true,
	"issue":         true,
	"coupon_rate":   true,
	"maturity_year": true,
	"strike":        true,
	"slot":          true,
}

type marketView struct {
	Session  engine.MarketSession `json:"session"`
	Open     bool                 `json:"open"`
	Phase    string               `json:"phase"`
	NextOpen time.Time            `json:"next_open"`
}

type marketsPayload struct {
	Markets []marketView `json:"markets"`
	At      time.Time    `json:"at"`
}

type crossPayload struct {
	Primary    string    `json:"primary"`
	Trading    string    `json:"trading"`
	Adjustment float64   `json:"adjustment"`
	Fee        float64   `json:"fee"`
	At         time.Time `json:"at"`
}

type tierPayload struct {
	Tier             string                 `json:"tier"`
	NewsDelayMinutes float64                `json:"news_delay_minutes"`
	Analysis         engine.AnalysisQuality `json:"analysis"`
	Article          *engine.NewsArticle    `json:"article"`
	HasAccess        *bool                  `json:"has_access"`
}

type assetsPayload struct {
	Assets []store.Asset `json:"assets"`
}

type assetDetailPayload struct {
	Asset store.Asset       `json:"asset"`
	Price *store.AssetPrice `json:"price"`
}

type tradersPayload struct {
	Traders []store.NpcTrader `json:"traders"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Fprintln(os.Stderr, msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// printBox renders aligned label/value rows, boxed when stdout is a terminal.
func printBox(title string, rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	if !isTTY() {
		fmt.Println(title)
		for _, r := range rows {
			fmt.Printf("  %-*s  %s\n", width, r[0], r[1])
		}
		return
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, titleStyle.Render(title))
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-*s", width, r[0]))+"  "+r[1])
	}
	fmt.Println(boxStyle.Render(strings.Join(lines, "\n")))
}

func renderProfile(p cl.Profile) {
	printBox("Profile", [][2]string{
		{"API", orDash(p.APIBaseURL)},
		{"Market", orDash(p.Market)},
		{"Tier", orDash(p.Tier)},
	})
}

func renderOptionPrice(raw map[string]any, in cl.OptionInput) error {
	g, err := decodeInto[engine.Greeks](raw)
	if err != nil {
		return err
	}
	printBox(fmt.Sprintf("%s K=%.2f S=%.2f T=%.3fy", strings.ToUpper(in.Type), in.Strike, in.Underlying, in.Years), [][2]string{
		{"Price", accent.Sprintf("%.4f", g.Price)},
		{"Intrinsic", fmt.Sprintf("%.4f", g.IntrinsicValue)},
		{"Time value", fmt.Sprintf("%.4f", g.TimeValue)},
		{"Delta", colorizeFloat(g.Delta, 4)},
		{"Gamma", fmt.Sprintf("%.6f", g.Gamma)},
		{"Theta/day", colorizeFloat(g.Theta, 4)},
		{"Vega/pt", fmt.Sprintf("%.4f", g.Vega)},
		{"Rho/pt", colorizeFloat(g.Rho, 4)},
	})
	return nil
}

func renderImpliedVolatility(raw map[string]any, marketPrice float64) error {
	printBox("Implied Volatility", [][2]string{
		{"Market price", fmt.Sprintf("%.4f", marketPrice)},
		{"Volatility", accent.Sprintf("%.2f%%", number(raw["implied_volatility"])*100)},
	})
	return nil
}

func renderMarkets(raw map[string]any) error {
	p, err := decodeInto[marketsPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== MARKETS @ %s ==\n", p.At.UTC().Format(time.RFC3339))
	fmt.Printf("%-5s %-32s %-8s %-12s %-20s\n", "CODE", "NAME", "STATUS", "PHASE", "NEXT OPEN (UTC)")
	for _, m := range p.Markets {
		fmt.Printf("%-5s %-32s %-8s %-12s %-20s\n",
			m.Session.Code,
			truncate(m.Session.Name, 32),
			openLabel(m.Open),
			m.Phase,
			m.NextOpen.UTC().Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func renderMarket(raw map[string]any) error {
	m, err := decodeInto[marketView](raw)
	if err != nil {
		return err
	}
	s := m.Session
	printBox(fmt.Sprintf("%s  %s", s.Code, s.Name), [][2]string{
		{"Status", openLabel(m.Open)},
		{"Phase", m.Phase},
		{"Hours", fmt.Sprintf("%s-%s %s", s.RegularOpen, s.RegularClose, s.Timezone)},
		{"Extended", fmt.Sprintf("%s-%s", orDash(s.PreMarketOpen), orDash(s.AfterHoursClose))},
		{"Next open", m.NextOpen.UTC().Format(time.RFC3339)},
		{"Cross fee", fmt.Sprintf("%.2f bps", s.CrossTradingFee*10_000)},
		{"Lead market", strconv.FormatBool(s.LeadMarket)},
	})
	return nil
}

func renderCross(raw map[string]any) error {
	c, err := decodeInto[crossPayload](raw)
	if err != nil {
		return err
	}
	printBox(fmt.Sprintf("%s -> %s", c.Primary, c.Trading), [][2]string{
		{"Adjustment", fmt.Sprintf("%.2fx", c.Adjustment)},
		{"Fee", fmt.Sprintf("%.2f bps", c.Fee*10_000)},
		{"At", c.At.UTC().Format(time.RFC3339)},
	})
	return nil
}

func renderTier(raw map[string]any) error {
	t, err := decodeInto[tierPayload](raw)
	if err != nil {
		return err
	}
	rows := [][2]string{
		{"News delay", fmt.Sprintf("%.0f min", t.NewsDelayMinutes)},
		{"Accuracy", fmt.Sprintf("%.0f%%", t.Analysis.Accuracy*100)},
		{"Depth", t.Analysis.Depth},
		{"Features", strings.Join(t.Analysis.Features, ", ")},
	}
	if t.Article != nil && t.HasAccess != nil {
		access := danger.Sprint("locked")
		if *t.HasAccess {
			access = success.Sprint("available")
		}
		rows = append(rows, [2]string{"Article", access})
	}
	printBox(strings.ToUpper(t.Tier)+" tier", rows)
	return nil
}

func renderAssets(raw map[string]any) error {
	p, err := decodeInto[assetsPayload](raw)
	if err != nil {
		return err
	}
	if len(p.Assets) == 0 {
		printInfo("No assets found.")
		return nil
	}
	fmt.Printf("%-16s %-28s %-12s %-36s\n", "SYMBOL", "NAME", "TYPE", "ID")
	for _, a := range p.Assets {
		fmt.Printf("%-16s %-28s %-12s %-36s\n", accent.Sprint(a.Symbol), truncate(a.Name, 28), a.Type, a.ID)
	}
	return nil
}

func renderAsset(raw map[string]any) error {
	p, err := decodeInto[assetDetailPayload](raw)
	if err != nil {
		return err
	}
	price := "-"
	if p.Price != nil {
		price = p.Price.Price.StringFixed(2)
	}
	printBox(p.Asset.Symbol, [][2]string{
		{"Name", p.Asset.Name},
		{"Type", p.Asset.Type},
		{"Price", price},
		{"ID", p.Asset.ID},
		{"Created", p.Asset.CreatedAt.UTC().Format(time.RFC3339)},
	})
	return nil
}

func renderGeneratedSymbol(raw map[string]any) error {
	rows := [][2]string{
		{"Type", str(raw["type"])},
		{"Symbol", accent.Sprint(str(raw["symbol"]))},
	}
	if b, _ := raw["collision"].(bool); b {
		rows = append(rows, [2]string{"Base", warn.Sprintf("%s (taken)", str(raw["base_symbol"]))})
	}
	printBox("Generated Symbol", rows)
	return nil
}

func renderReport(raw map[string]any) error {
	rep, err := decodeInto[symbols.Report](raw)
	if err != nil {
		return err
	}
	mode := success.Sprint("applied")
	if rep.DryRun {
		mode = warn.Sprint("dry run")
	}
	printBox("Symbol Regeneration", [][2]string{
		{"Mode", mode},
		{"Processed", strconv.Itoa(rep.Processed)},
		{"Changed", strconv.Itoa(rep.Changed)},
		{"Unchanged", strconv.Itoa(rep.Unchanged)},
		{"Failed", colorizeCount(rep.Failed)},
	})
	if len(rep.Results) == 0 {
		return nil
	}
	fmt.Printf("%-28s %-16s %-16s %s\n", "NAME", "OLD", "NEW", "STATUS")
	for _, r := range rep.Results {
		status := neutral.Sprint("unchanged")
		switch {
		case !r.Success:
			status = danger.Sprint(r.Error)
		case r.Changed:
			status = success.Sprint("changed")
		}
		fmt.Printf("%-28s %-16s %-16s %s\n", truncate(orDash(r.Name), 28), orDash(r.OldSymbol), orDash(r.NewSymbol), status)
	}
	return nil
}

func renderCycle(raw map[string]any) error {
	res, err := decodeInto[struct {
		TradersProcessed int      `json:"traders_processed"`
		OrdersCreated    int      `json:"orders_created"`
		TotalVolume      string   `json:"total_volume"`
		Errors           []string `json:"errors"`
		Failed           bool     `json:"failed"`
	}](raw)
	if err != nil {
		return err
	}
	printBox("NPC Cycle", [][2]string{
		{"Traders", strconv.Itoa(res.TradersProcessed)},
		{"Orders", strconv.Itoa(res.OrdersCreated)},
		{"Volume", res.TotalVolume},
		{"Errors", colorizeCount(len(res.Errors))},
	})
	for _, e := range res.Errors {
		printWarn("  " + e)
	}
	return nil
}

func renderTraders(raw map[string]any) error {
	p, err := decodeInto[tradersPayload](raw)
	if err != nil {
		return err
	}
	if len(p.Traders) == 0 {
		printInfo("No NPC traders.")
		return nil
	}
	sort.Slice(p.Traders, func(i, j int) bool { return p.Traders[i].Name < p.Traders[j].Name })
	fmt.Printf("%-24s %-14s %14s %8s %8s %6s\n", "NAME", "TYPE", "CAPITAL", "TRADES", "WIN%", "ACTIVE")
	for _, t := range p.Traders {
		fmt.Printf("%-24s %-14s %14s %8d %7.1f%% %6s\n",
			truncate(t.Name, 24),
			t.TraderType,
			t.AvailableCapital.StringFixed(2),
			t.TotalTrades,
			t.WinRate,
			strconv.FormatBool(t.Active),
		)
	}
	return nil
}

// parseParams turns repeated key=value flags into a generator params object.
func parseParams(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("param %q must be key=value", pair)
		}
		value = strings.TrimSpace(value)
		if numericParams[key] {
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s must be a number", key)
			}
			out[key] = n
			continue
		}
		out[key] = value
	}
	return out, nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func openLabel(open bool) string {
	if open {
		return success.Sprint("OPEN")
	}
	return danger.Sprint("CLOSED")
}

func colorizeFloat(v float64, prec int) string {
	text := strconv.FormatFloat(v, 'f', prec, 64)
	switch {
	case v > 0:
		return success.Sprint("+" + text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizeCount(n int) string {
	if n > 0 {
		return danger.Sprint(n)
	}
	return neutral.Sprint(n)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
