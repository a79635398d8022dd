package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragayama123/EVM-PM-Tool/internal/dto"
)

var errNoHolidayService = errors.New("未配置非工作日服务")

func newHolidaysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "holidays",
		Aliases: []string{"holiday"},
		Short:   "管理项目非工作日",
	}

	cmd.AddCommand(
		newHolidaysGenerateCmd(app),
		newHolidaysImportICSCmd(app),
	)

	return cmd
}

func newHolidaysGenerateCmd(app *App) *cobra.Command {
	var (
		projectID int64
		req       dto.GenerateHolidaysRequest
	)

	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "按区间生成周末 / 法定节假日",
		Example: `  evmctl holidays generate --project 1 --start 2025-04-01 --end 2025-06-30 --weekends --national`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Holiday == nil {
				return errNoHolidayService
			}
			if !req.IncludeWeekends && !req.IncludeNationalHolidays {
				return errors.New("至少指定 --weekends 或 --national 之一")
			}

			result, err := app.Holiday.Generate(cmd.Context(), projectID, &req)
			if err != nil {
				return fmt.Errorf("生成非工作日失败: %w", err)
			}

			printImportResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "项目 ID")
	cmd.Flags().StringVar(&req.StartDate, "start", "", "开始日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&req.EndDate, "end", "", "结束日期 YYYY-MM-DD")
	cmd.Flags().BoolVar(&req.IncludeWeekends, "weekends", false, "生成周六日")
	cmd.Flags().BoolVar(&req.IncludeNationalHolidays, "national", false, "生成法定节假日")
	cmd.Flags().BoolVar(&req.Overwrite, "overwrite", false, "覆盖已有日期")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newHolidaysImportICSCmd(app *App) *cobra.Command {
	var (
		projectID int64
		file      string
		req       dto.ImportICSRequest
	)

	cmd := &cobra.Command{
		Use:   "import-ics",
		Short: "从 iCalendar 文件或 URL 导入非工作日",
		Example: `  evmctl holidays import-ics --project 1 --file holidays.ics
  evmctl holidays import-ics --project 1 --url https://example.com/jp.ics --type national`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Holiday == nil {
				return errNoHolidayService
			}
			if file != "" && req.URL != "" {
				return errors.New("--file 与 --url 只能指定一个")
			}

			var result *dto.HolidayImportResponse
			var err error
			if file != "" {
				f, openErr := os.Open(file)
				if openErr != nil {
					return fmt.Errorf("打开文件失败: %w", openErr)
				}
				defer f.Close()
				result, err = app.Holiday.ImportICS(cmd.Context(), projectID, &req, f)
			} else {
				result, err = app.Holiday.ImportICS(cmd.Context(), projectID, &req, nil)
			}
			if err != nil {
				return fmt.Errorf("导入 iCalendar 失败: %w", err)
			}

			printImportResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "项目 ID")
	cmd.Flags().StringVar(&file, "file", "", "本地 .ics 文件路径")
	cmd.Flags().StringVar(&req.URL, "url", "", "远程 .ics 地址")
	cmd.Flags().StringVar(&req.HolidayType, "type", "", "非工作日类型 weekend|national|company|custom")
	cmd.Flags().StringVar(&req.StartDate, "start", "", "只导入该日期之后的事件")
	cmd.Flags().StringVar(&req.EndDate, "end", "", "只导入该日期之前的事件")
	cmd.Flags().BoolVar(&req.Overwrite, "overwrite", false, "覆盖已有日期")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func printImportResult(cmd *cobra.Command, result *dto.HolidayImportResponse) {
	fmt.Fprintf(cmd.OutOrStdout(), "新增 %d 更新 %d 跳过 %d\n", result.Created, result.Updated, result.Skipped)
}
