package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNoMigrator = errors.New("未配置数据库迁移")

func newMigrateCmd(app *App) *cobra.Command {
	var (
		down   int
		status bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		Example: `  evmctl migrate
  evmctl migrate --down 1
  evmctl migrate --status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Migrator == nil {
				return errNoMigrator
			}
			if down < 0 {
				return fmt.Errorf("--down 不能为负数: %d", down)
			}

			switch {
			case status:
				// 仅查看
			case down > 0:
				if err := app.Migrator.Down(down); err != nil {
					return fmt.Errorf("回滚迁移失败: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "已回滚 %d 步\n", down)
			default:
				if err := app.Migrator.Up(); err != nil {
					return fmt.Errorf("执行迁移失败: %w", err)
				}
			}

			version, dirty, err := app.Migrator.Version()
			if err != nil {
				return fmt.Errorf("读取迁移版本失败: %w", err)
			}
			if version == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "当前版本: 无")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "当前版本: %d", version)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "回滚的迁移步数")
	cmd.Flags().BoolVar(&status, "status", false, "仅输出当前迁移版本")

	return cmd
}
