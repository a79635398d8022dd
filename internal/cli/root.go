package cli

import (
	"github.com/spf13/cobra"

	"github.com/ragayama123/EVM-PM-Tool/internal/service"
)

// Migrator 数据库迁移操作
type Migrator interface {
	Up() error
	Down(steps int) error
	Version() (version uint, dirty bool, err error)
}

// App 命令行依赖集合；为 nil 的依赖对应子命令不可用
type App struct {
	Migrator Migrator
	EVM      service.EVMService
	Holiday  service.HolidayService
}

// NewRootCmd 创建 evmctl 根命令
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "evmctl",
		Short:         "EVM 项目管理运维工具",
		Long:          "evmctl 执行数据库迁移、EVM 快照与非工作日生成等运维任务。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(app),
		newSnapshotCmd(app),
		newHolidaysCmd(app),
	)

	return root
}
