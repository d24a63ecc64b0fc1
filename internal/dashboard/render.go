package dashboard

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"m365audit/internal/logging"
)

// action is one recommendation on the Actions tab.
type action struct {
	Title       string
	Impact      string
	Description string
}

// viewModel is the template input: the raw data plus derived figures the
// page displays.
type viewModel struct {
	*Data
	JSON template.JS

	TotalInactive  int
	InactiveCost   float64
	UnassignedCost float64
	TotalSavings   float64
	SavingsPct     float64
	Underutilized  []underutilizedSKU
	TotalWaste     float64
	Actions        []action
}

type underutilizedSKU struct {
	SKUName        string
	Available      int
	Total          int
	UtilizationPct float64
	WasteMonthly   float64
}

func (vm *viewModel) AnnualSavings() float64      { return vm.TotalSavings * 12 }
func (vm *viewModel) AnnualInactiveCost() float64 { return vm.InactiveCost * 12 }
func (vm *viewModel) AnnualWaste() float64        { return vm.TotalWaste * 12 }

func buildViewModel(d *Data) (*viewModel, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dashboard data: %w", err)
	}

	vm := &viewModel{Data: d, JSON: template.JS(raw)}

	for _, s := range d.InactiveSummary {
		vm.TotalInactive += s.InactiveCount
		vm.InactiveCost += s.TotalCost
	}
	// Per-SKU counts double-count multi-license users; the activity
	// breakdown has the distinct figure.
	if d.Activity != nil {
		vm.TotalInactive = d.Activity.InactiveUsers + d.Activity.NeverSignedIn
	}
	for _, c := range d.CostsBySKU {
		if c.Available > 0 {
			waste := float64(c.Available) * c.MonthlyCost
			vm.UnassignedCost += waste
			vm.Underutilized = append(vm.Underutilized, underutilizedSKU{
				SKUName:        c.SKUName,
				Available:      c.Available,
				Total:          c.Total,
				UtilizationPct: c.UtilizationPct,
				WasteMonthly:   waste,
			})
		}
	}
	vm.TotalWaste = vm.UnassignedCost
	vm.TotalSavings = vm.InactiveCost + vm.UnassignedCost
	if d.Costs != nil && d.Costs.MonthlySpend > 0 {
		vm.SavingsPct = vm.TotalSavings / d.Costs.MonthlySpend * 100
	}

	sort.Slice(vm.Underutilized, func(i, j int) bool {
		return vm.Underutilized[i].WasteMonthly > vm.Underutilized[j].WasteMonthly
	})

	vm.Actions = buildActions(vm)
	return vm, nil
}

func buildActions(vm *viewModel) []action {
	var actions []action

	if vm.TotalInactive > 0 {
		actions = append(actions, action{
			Title:  "Remove licenses from inactive users",
			Impact: formatUSD(vm.InactiveCost*12) + "/year",
			Description: fmt.Sprintf(
				"%d users haven't signed in for %d+ days. Cross-reference with HR termination records before removing licenses.",
				vm.TotalInactive, vm.InactiveDays),
		})
	}

	if len(vm.Underutilized) > 0 {
		var unassigned int
		for _, u := range vm.Underutilized {
			unassigned += u.Available
		}
		actions = append(actions, action{
			Title:  "Cancel unassigned licenses",
			Impact: formatUSD(vm.UnassignedCost*12) + "/year",
			Description: fmt.Sprintf(
				"%d licenses are purchased but not assigned. Consider canceling during next renewal.", unassigned),
		})
	}

	var lowUtil int
	var lowUtilCost float64
	for _, c := range vm.CostsBySKU {
		if c.UtilizationPct < 80 && c.Total > 5 && c.Available > 0 {
			lowUtil++
			lowUtilCost += float64(c.Available) * c.MonthlyCost
		}
	}
	if lowUtil > 0 {
		actions = append(actions, action{
			Title:  "Review low-utilization license types",
			Impact: formatUSD(lowUtilCost*12) + "/year potential",
			Description: fmt.Sprintf(
				"%d license types have <80%% utilization. Review if full allocation is still needed.", lowUtil),
		})
	}
	return actions
}

// formatUSD renders a dollar amount with thousands separators.
func formatUSD(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

var tmplFuncs = template.FuncMap{
	"usd": formatUSD,
	"pct": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"days": func(d int) string {
		if d == 9999 {
			return "Never"
		}
		return fmt.Sprintf("%d", d)
	},
	"orNever": func(s string) string {
		if s == "" {
			return "Never"
		}
		return s
	},
}

var pageTemplate = template.Must(template.New("dashboard").Funcs(tmplFuncs).Parse(pageHTML))

// Render writes the dashboard HTML to outputPath.
func Render(d *Data, outputPath string) error {
	timer := logging.StartTimer(logging.CategoryDashboard, "Render")
	defer timer.Stop()

	vm, err := buildViewModel(d)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create dashboard file: %w", err)
	}
	defer f.Close()

	if err := pageTemplate.Execute(f, vm); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	logging.Dashboard("Dashboard written to %s", outputPath)
	return nil
}
