package handler

import "github.com/ragayama123/EVM-PM-Tool/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Project  *ProjectHandler
	Task     *TaskHandler
	Member   *MemberHandler
	Holiday  *HolidayHandler
	EVM      *EVMHandler
	Schedule *ScheduleHandler
	Export   *ExportHandler
	WBS      *WBSHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Project:  NewProjectHandler(svc.Project),
		Task:     NewTaskHandler(svc.Task),
		Member:   NewMemberHandler(svc.Member),
		Holiday:  NewHolidayHandler(svc.Holiday),
		EVM:      NewEVMHandler(svc.EVM),
		Schedule: NewScheduleHandler(svc.Schedule),
		Export:   NewExportHandler(svc.Export),
		WBS:      NewWBSHandler(svc.WBS),
	}
}
