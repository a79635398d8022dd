// Package engine 排程与 EVM 指标计算引擎
//
// 包内全部函数都是输入快照（任务 / 成员 / 非工作日）的纯函数：不做 I/O、不持有全局可变状态。
// 预览与执行调用同一个 Plan* 函数，执行方只负责把结果原子地写回存储。
package engine
