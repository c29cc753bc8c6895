// Package main implements the planner CLI, an offline front end to the
// supply planning engine that reads demand history from .xlsx/.csv files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	inputFile    string
	granularity  string
	scenarioName string
	dailyLimit   int
	weeklyLimit  int
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Demand vs capacity planning from historical order data",
	Long: `planner reads daily demand history (period, orders, items, revenue) from an
.xlsx or .csv file and computes adjusted demand, utilization and capacity
recommendations for what-if scenarios.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "demand history file (.xlsx or .csv)")
	rootCmd.PersistentFlags().StringVarP(&granularity, "granularity", "g", "daily", "series granularity: daily or weekly")
	rootCmd.PersistentFlags().StringVar(&scenarioName, "scenario", "", "named scenario from configs/planning_scenarios.yaml")
	rootCmd.PersistentFlags().IntVar(&dailyLimit, "daily-limit", 90, "maximum number of days in the daily series")
	rootCmd.PersistentFlags().IntVar(&weeklyLimit, "weekly-limit", 26, "maximum number of weeks in the weekly series")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("file")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(defaultCapacityCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
