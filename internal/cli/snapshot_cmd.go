package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
)

func newSnapshotCmd(app *App) *cobra.Command {
	var (
		projectID int64
		asOf      string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "保存项目 EVM 快照",
		Long:  "按基准日计算项目 EVM 指标并保存一条快照记录。",
		Example: `  evmctl snapshot --project 1
  evmctl snapshot --project 1 --as-of 2025-04-30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.EVM == nil {
				return errors.New("未配置 EVM 服务")
			}

			req := &dto.CreateSnapshotRequest{}
			if asOf != "" {
				req.AsOf = &asOf
			}

			snap, err := app.EVM.CreateSnapshot(cmd.Context(), projectID, req)
			if err != nil {
				return fmt.Errorf("保存快照失败: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "项目 %d 快照 %s\n", snap.ProjectID, snap.SnapshotDate)
			fmt.Fprintf(out, "  PV=%.2f EV=%.2f AC=%.2f BAC=%.2f\n", snap.PV, snap.EV, snap.AC, snap.BAC)
			fmt.Fprintf(out, "  SV=%.2f CV=%.2f SPI=%.3f CPI=%.3f\n", snap.SV, snap.CV, snap.SPI, snap.CPI)
			fmt.Fprintf(out, "  ETC=%.2f EAC=%.2f\n", snap.ETC, snap.EAC)
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "项目 ID")
	cmd.Flags().StringVar(&asOf, "as-of", "", "基准日 YYYY-MM-DD（默认今天）")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
