package kernel

import "time"

// TaskInfo is a point-in-time snapshot of one task's scheduling state and
// runtime statistics (§6.4 get_info).
type TaskInfo struct {
	ID           TaskID
	Name         string
	State        TaskState
	Priority     uint8
	BasePriority uint8
	RunCount     uint64
	TotalRunTime time.Duration
	StackSize    int
	StackUsed    int
}

// TaskInfo returns a snapshot of one task's state, or ErrNotFound if id
// does not resolve to a live task.
func (k *Kernel) TaskInfo(id TaskID) (TaskInfo, error) {
	tcb, ok := k.taskByID(id)
	if !ok {
		return TaskInfo{}, err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	return k.snapshotTaskLocked(tcb), nil
}

func (k *Kernel) snapshotTaskLocked(tcb *taskControlBlock) TaskInfo {
	state := tcb.state.Load()
	if tcb.suspended && state != TaskTerminated {
		state = TaskSuspended
	}
	return TaskInfo{
		ID:           tcb.id,
		Name:         tcb.name,
		State:        state,
		Priority:     tcb.priority,
		BasePriority: tcb.basePriority,
		RunCount:     tcb.stats.runCount,
		TotalRunTime: time.Duration(tcb.stats.totalRunTime),
		StackSize:    tcb.stackSize,
		StackUsed:    tcb.stackUsed,
	}
}

// KernelInfo is a point-in-time snapshot of the whole kernel, per §6.4.
type KernelInfo struct {
	Tasks          []TaskInfo
	NumPriorities  int
	ReadyTaskCount int
	Now            int64
}

// GetInfo snapshots every live task plus top-level scheduler counters.
func (k *Kernel) GetInfo() KernelInfo {
	var info KernelInfo
	k.cs.enter()
	info.NumPriorities = k.cfg.NumPriorities
	info.Now = k.port.Now()
	for _, bucket := range k.sched.buckets {
		info.ReadyTaskCount += len(bucket.tasks)
	}
	k.cs.exit()

	k.reg.Iter(KindTask, func(_ uint32, _ string, obj any) bool {
		tcb := obj.(*taskControlBlock)
		k.cs.enter()
		info.Tasks = append(info.Tasks, k.snapshotTaskLocked(tcb))
		k.cs.exit()
		return true
	})
	return info
}

// TaskSwitchLatencyPercentile reports the estimated p-th percentile
// (the quantile the task's pSquare estimator is constructed with, 0.99)
// of dispatch latency observed for the task, in
// nanoseconds, or 0 if no samples have been recorded yet.
func (k *Kernel) TaskSwitchLatencyPercentile(id TaskID) (float64, error) {
	tcb, ok := k.taskByID(id)
	if !ok {
		return 0, err(NotFound)
	}
	k.cs.enter()
	defer k.cs.exit()
	return tcb.stats.switchLatency.quantile(), nil
}

// recordSwitchLatency feeds the scheduling-latency observed between a
// task becoming Ready and being Dispatched into its pSquare estimator.
// Called from reschedule when Config.EnableStats is on.
func (k *Kernel) recordSwitchLatency(tcb *taskControlBlock, readyAt, dispatchedAt int64) {
	if !k.cfg.EnableStats || readyAt == 0 {
		return
	}
	tcb.stats.switchLatency.observe(float64(dispatchedAt - readyAt))
}
