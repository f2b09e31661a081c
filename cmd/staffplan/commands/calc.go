package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"staffplan/internal/model"
	"staffplan/internal/staffing"
)

var calcReq model.CalcRequest

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Run a one-shot staffing calculation and print the result as JSON",
	Example: `  staffplan calc --volume 100 --interval 30 --aht 240 --target-sl 80 --threshold 20 --max-occupancy 85
  staffplan calc --volume 50 --aht 300 --target-sl 80 --threshold 30 --max-occupancy 90 --patience 60 --model erlang_a`,
	RunE: runCalc,
}

func runCalc(cmd *cobra.Command, _ []string) error {
	res := staffing.Calculate(calcReq)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if len(res.Errors) > 0 {
		return errors.New("invalid staffing inputs")
	}
	return nil
}

func init() {
	f := calcCmd.Flags()
	f.Float64Var(&calcReq.Workload.Volume, "volume", 0, "offered contacts per interval")
	f.IntVar(&calcReq.Workload.IntervalMinutes, "interval", 30, "interval length in minutes")
	f.Float64Var(&calcReq.Workload.AHTSeconds, "aht", 0, "average handle time in seconds")
	f.Float64Var(&calcReq.Constraints.TargetSLPercent, "target-sl", 80, "service level target percent")
	f.Float64Var(&calcReq.Constraints.ThresholdSeconds, "threshold", 20, "service level threshold in seconds")
	f.Float64Var(&calcReq.Constraints.MaxOccupancy, "max-occupancy", 85, "occupancy cap percent")
	f.Float64Var(&calcReq.Behavior.ShrinkagePercent, "shrinkage", 0, "shrinkage percent")
	f.Float64Var(&calcReq.Behavior.AveragePatienceSeconds, "patience", 0, "average caller patience in seconds (models A and X)")
	f.Float64Var(&calcReq.Behavior.Concurrency, "concurrency", 0, "simultaneous conversations per agent")
	f.StringVar(&calcReq.Model, "model", "", "staffing model: erlang_b, erlang_c, erlang_a or erlang_x (empty selects erlang_c)")
	f.Float64Var(&calcReq.ProductivityModifier, "productivity", 0, "productivity modifier applied to shrinkage")
	f.IntVar(&calcReq.FixedAgents, "fixed-agents", 0, "also report the metrics achievable at this fixed headcount")
}
