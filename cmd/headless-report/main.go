package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/Garsondee/Triage-Sense/internal/analytics"
	"github.com/Garsondee/Triage-Sense/internal/api"
	"github.com/Garsondee/Triage-Sense/internal/config"
	"github.com/Garsondee/Triage-Sense/internal/export"
	"github.com/Garsondee/Triage-Sense/internal/game"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// policy picks the decision for a patient.
type policy func(p triage.Patient) triage.Action

var policies = map[string]policy{
	"risk": func(p triage.Patient) triage.Action {
		switch p.Risk.OrDefault() {
		case triage.RiskHigh:
			return triage.ActionIsolate
		case triage.RiskMedium:
			return triage.ActionAdmit
		default:
			return triage.ActionDischarge
		}
	},
	"admit":     func(triage.Patient) triage.Action { return triage.ActionAdmit },
	"discharge": func(triage.Patient) triage.Action { return triage.ActionDischarge },
	"isolate":   func(triage.Patient) triage.Action { return triage.ActionIsolate },
}

func policyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type runConfig struct {
	client    *api.Client
	policy    policy
	maxTurns  int
	window    int
	chartDir  string
	exportDir string
	formats   []triage.Format
	logOutput io.Writer
}

type runStats struct {
	runIndex int
	turns    int
	final    triage.FinalResult

	decisions      map[triage.Action]int
	avatarsApplied int
	avatarsFailed  int
	avatarsStale   int
	requestErrors  int

	report  *analytics.Report
	charts  []string
	exports []string
	events  string
}

func main() {
	var configPath string
	var server string
	var runs int
	var policyName string
	var maxTurns int
	var window int
	var outDir string
	var exportList string
	var showEvents bool

	flag.StringVar(&configPath, "config", "", "optional YAML config file")
	flag.StringVar(&server, "server", "", "server base URL (overrides config)")
	flag.IntVar(&runs, "runs", 3, "number of games to play")
	flag.StringVar(&policyName, "policy", "risk", "decision policy: "+strings.Join(policyNames(), "|"))
	flag.IntVar(&maxTurns, "max-turns", 500, "turn limit per game")
	flag.IntVar(&window, "window", analytics.DefaultReportWindow, "trailing days averaged in the report")
	flag.StringVar(&outDir, "out", "", "directory for chart PNGs (empty disables)")
	flag.StringVar(&exportList, "export", "", "comma list of export formats to download per run (json,csv,xlsx)")
	flag.BoolVar(&showEvents, "events", false, "print the full event log of each run")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if server != "" {
		cfg.Server.BaseURL = server
	}
	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	pol, ok := policies[policyName]
	if !ok {
		fmt.Printf("error: unsupported policy %q (supported: %s)\n", policyName, strings.Join(policyNames(), ", "))
		return
	}
	formats, err := parseFormats(exportList)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	client, err := api.New(cfg.Server.BaseURL, api.WithTimeout(cfg.Server.Timeout))
	if err != nil {
		log.Fatal(err)
	}

	rc := runConfig{
		client:    client,
		policy:    pol,
		maxTurns:  maxTurns,
		window:    window,
		chartDir:  outDir,
		exportDir: cfg.Export.Dir,
		formats:   formats,
		logOutput: io.Discard,
	}

	fmt.Printf("=== Headless Triage Report ===\n")
	fmt.Printf("server=%s policy=%s runs=%d max_turns=%d\n\n", cfg.Server.BaseURL, policyName, runs, maxTurns)

	ctx := context.Background()
	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		rs, err := playRun(ctx, rc, i+1)
		if err != nil {
			log.Fatalf("run %d: %v", i+1, err)
		}
		all = append(all, rs)
		printRun(os.Stdout, rs)
		if showEvents {
			fmt.Print(rs.events)
			fmt.Println()
		}
	}
	printAggregate(os.Stdout, all)
}

// parseFormats splits a comma list of export formats.
func parseFormats(list string) ([]triage.Format, error) {
	var out []triage.Format
	for _, s := range strings.Split(list, ",") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		f, err := triage.ParseFormat(s)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return lo.Uniq(out), nil
}

// playRun restarts the server game, plays it to game over with the policy,
// then loads analytics and writes charts and exports.
func playRun(ctx context.Context, rc runConfig, runIndex int) (runStats, error) {
	rs := runStats{runIndex: runIndex}
	runName := fmt.Sprintf("run%02d", runIndex)

	var opts []game.Option
	opts = append(opts, game.WithRevealDelay(0), game.WithLogOutput(rc.logOutput))
	if len(rc.formats) > 0 {
		sink := export.DirSink{Dir: filepath.Join(rc.exportDir, runName)}
		opts = append(opts, game.WithExporter(export.New(rc.client, sink)))
	}
	ctrl := game.New(rc.client, opts...)
	defer ctrl.Close()

	if err := ctrl.Restart(ctx); err != nil {
		return rs, fmt.Errorf("restart: %w", err)
	}
	for rs.turns < rc.maxTurns {
		snap := ctrl.Snapshot()
		if snap.Phase == game.PhaseGameOver {
			break
		}
		if snap.Patient == nil {
			return rs, fmt.Errorf("turn %d: no patient in phase %s", rs.turns+1, snap.Phase)
		}
		if err := ctrl.SendDecision(ctx, rc.policy(*snap.Patient)); err != nil {
			return rs, fmt.Errorf("turn %d: %w", rs.turns+1, err)
		}
		rs.turns++
	}
	ctrl.Wait()

	snap := ctrl.Snapshot()
	if snap.Final != nil {
		rs.final = *snap.Final
	}
	collectEvents(&rs, ctrl.Events())

	view := analytics.NewMemoryView()
	res, err := analytics.New(rc.client, view, analytics.WithLogOutput(rc.logOutput)).Load(ctx)
	if err != nil {
		return rs, fmt.Errorf("analytics: %w", err)
	}
	rs.report = analytics.NewReport(res.Data, rc.window)
	if rc.chartDir != "" {
		if rs.charts, err = view.WritePNGs(rc.chartDir, runName+"-"); err != nil {
			return rs, fmt.Errorf("charts: %w", err)
		}
	}

	for _, f := range rc.formats {
		out, err := ctrl.Export(ctx, f)
		if err != nil {
			return rs, err
		}
		rs.exports = append(rs.exports, out.Location)
	}
	return rs, nil
}

func collectEvents(rs *runStats, events *game.EventLog) {
	rs.decisions = map[triage.Action]int{}
	for _, e := range events.Filter(game.CatDecision, "sent") {
		rs.decisions[triage.Action(e.Value)]++
	}
	rs.avatarsApplied = events.Count(game.CatAvatar, "applied")
	rs.avatarsFailed = events.Count(game.CatAvatar, "failed") + events.Count(game.CatAvatar, "empty")
	rs.avatarsStale = events.Count(game.CatAvatar, "stale")
	for _, e := range events.Filter(game.CatRequest, "") {
		if strings.HasSuffix(e.Key, "_failed") {
			rs.requestErrors++
		}
	}
	rs.events = events.Format()
}

func printRun(w io.Writer, rs runStats) {
	fmt.Fprintf(w, "--- Run %d ---\n", rs.runIndex)
	fmt.Fprintf(w, "final: rating=%s day=%d recovered=%d deaths=%d staff=%d trust=%d%%\n",
		orDash(rs.final.Rating), rs.final.Day, rs.final.Recovered, rs.final.Deaths, rs.final.InfectedStaff, rs.final.PublicTrust)
	fmt.Fprintf(w, "decisions: turns=%d admit=%d discharge=%d isolate=%d\n",
		rs.turns, rs.decisions[triage.ActionAdmit], rs.decisions[triage.ActionDischarge], rs.decisions[triage.ActionIsolate])
	fmt.Fprintf(w, "client_events: avatars_applied=%d avatars_failed=%d avatars_stale=%d request_errors=%d\n",
		rs.avatarsApplied, rs.avatarsFailed, rs.avatarsStale, rs.requestErrors)
	if len(rs.charts) > 0 {
		fmt.Fprintf(w, "charts: %s\n", strings.Join(rs.charts, " "))
	}
	if len(rs.exports) > 0 {
		fmt.Fprintf(w, "exports: %s\n", strings.Join(rs.exports, " "))
	}
	fmt.Fprint(w, rs.report.Format())
	fmt.Fprintln(w)
}

func printAggregate(w io.Writer, all []runStats) {
	n := len(all)
	ratings := map[string]int{}
	for _, rs := range all {
		ratings[orDash(rs.final.Rating)]++
	}

	fmt.Fprintln(w, "=== Aggregate ===")
	fmt.Fprintf(w, "runs=%d\n", n)
	fmt.Fprintf(w, "avg_per_run: turns=%.1f days=%.1f recovered=%.1f deaths=%.1f staff=%.1f trust=%.1f\n",
		avg(lo.SumBy(all, func(rs runStats) int { return rs.turns }), n),
		avg(lo.SumBy(all, func(rs runStats) int { return rs.final.Day }), n),
		avg(lo.SumBy(all, func(rs runStats) int { return rs.final.Recovered }), n),
		avg(lo.SumBy(all, func(rs runStats) int { return rs.final.Deaths }), n),
		avg(lo.SumBy(all, func(rs runStats) int { return rs.final.InfectedStaff }), n),
		avg(lo.SumBy(all, func(rs runStats) int { return rs.final.PublicTrust }), n))
	fmt.Fprintf(w, "avg_survival=%s avg_bed_utilization=%s\n",
		avgPercent(all, func(rs runStats) int { return rs.report.Panel.Survival.Percent }),
		avgPercent(all, func(rs runStats) int { return rs.report.Panel.BedUtilization.Percent }))
	fmt.Fprintf(w, "ratings: %s\n", joinCounts(ratings))
	fmt.Fprintf(w, "avatar_failures=%d request_errors=%d\n",
		lo.SumBy(all, func(rs runStats) int { return rs.avatarsFailed }),
		lo.SumBy(all, func(rs runStats) int { return rs.requestErrors }))
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// avgPercent averages a per-run percentage over runs that produced a report.
func avgPercent(all []runStats, pct func(runStats) int) string {
	withReport := lo.Filter(all, func(rs runStats, _ int) bool { return rs.report != nil })
	if len(withReport) == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", avg(lo.SumBy(withReport, pct), len(withReport)))
}

func joinCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
