package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	config "supply-planning-api/configs"
	"supply-planning-api/pkg/models"
	"supply-planning-api/pkg/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	capacity   float64
	multiplier float64
	target     float64
	outFile    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a demand/capacity plan and print it as a table",
	RunE:  runPlan,
}

var defaultCapacityCmd = &cobra.Command{
	Use:   "default-capacity",
	Short: "Print the default starting capacity derived from history",
	RunE:  runDefaultCapacity,
}

func init() {
	planCmd.Flags().Float64Var(&capacity, "capacity", 0, "capacity per period in items (default: derived from history)")
	planCmd.Flags().Float64Var(&multiplier, "multiplier", 1, "demand multiplier, clamped to [0.1, 10]")
	planCmd.Flags().Float64Var(&target, "target", 0.8, "target utilization, clamped to [0.01, 1]")
	planCmd.Flags().StringVarP(&outFile, "out", "o", "", "also write the plan as an .xlsx workbook")
}

// newPlanningService 入力ファイルを読み込んだ計画サービスを作成
func newPlanningService() (*services.SupplyPlanningService, error) {
	zl := zap.NewNop()
	if verbose {
		var err error
		if zl, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	scenarios, err := config.LoadScenarioConfig(config.DefaultScenarioFile)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", inputFile, err)
	}
	defer f.Close()

	observations, _, err := services.NewDemandImportService(zl).ImportFile(inputFile, f)
	if err != nil {
		return nil, err
	}

	store := services.NewDemandStore()
	store.Replace(observations)
	return services.NewSupplyPlanningService(store, scenarios, dailyLimit, weeklyLimit, zl), nil
}

func runPlan(cmd *cobra.Command, _ []string) error {
	svc, err := newPlanningService()
	if err != nil {
		return err
	}

	req := models.PlanRequest{
		Granularity: models.Granularity(granularity),
		Scenario:    scenarioName,
	}
	if cmd.Flags().Changed("capacity") {
		req.Capacity = &capacity
	}
	if cmd.Flags().Changed("multiplier") || scenarioName == "" {
		req.DemandMultiplier = &multiplier
	}
	if cmd.Flags().Changed("target") || scenarioName == "" {
		req.TargetUtilization = &target
	}

	plan, err := svc.Plan(req)
	if err != nil {
		return err
	}

	if err := writePlanTable(cmd.OutOrStdout(), plan); err != nil {
		return err
	}

	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("create %s: %w", outFile, err)
		}
		if err := writeWorkbook(svc, plan, f); err != nil {
			return fmt.Errorf("write %s: %w", outFile, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nworkbook written to %s\n", outFile)
	}
	return nil
}

// writeWorkbook 計画を書き出してwを閉じる。Closeのエラーも返す
func writeWorkbook(svc *services.SupplyPlanningService, plan *models.PlanResponse, w io.WriteCloser) error {
	if err := svc.ExportWorkbook(plan, w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func runDefaultCapacity(cmd *cobra.Command, _ []string) error {
	svc, err := newPlanningService()
	if err != nil {
		return err
	}

	series, err := svc.Series(models.Granularity(granularity))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%g\n", services.NewPlanningEngine().DeriveDefaultCapacity(series))
	return nil
}

func writePlanTable(out io.Writer, plan *models.PlanResponse) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PERIOD\tORDERS\tREVENUE\tBASELINE\tADJUSTED\tUTIL%\tRECOMMENDED\t")
	for _, row := range plan.Rows {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.0f\t%.1f\t%.0f%%\t%.0f\t\n",
			row.Period, row.Orders, row.Revenue, row.BaselineDemand, row.AdjustedDemand,
			row.UtilizationPct, row.RecommendedCapacity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := plan.Summary
	fmt.Fprintf(out, "\ngranularity %s  capacity %.0f (default %.0f, max %.0f)  multiplier %.2f  target %.0f%%\n",
		plan.Granularity, plan.Parameters.Capacity, plan.DefaultCapacity, plan.CapacityMax,
		plan.Parameters.DemandMultiplier, plan.Parameters.TargetUtilization*100)
	fmt.Fprintf(out, "peak adjusted %.1f  avg adjusted %.1f  peak util %.0f%%  avg util %.0f%%  recommended for peak %.0f\n",
		s.PeakAdjustedDemand, s.AverageAdjustedDemand, s.PeakUtilization*100, s.AverageUtilization*100,
		s.RecommendedCapacityForPeak)
	return nil
}
