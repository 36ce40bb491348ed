package execution

import (
	"maps"

	"github.com/NethermindEth/starkexec/vm"
)

// ExecutionResources counts what one invocation (or a whole call tree)
// consumed on the VM.
type ExecutionResources struct {
	Steps                  uint64            `json:"steps"`
	MemoryHoles            uint64            `json:"memory_holes,omitempty"`
	BuiltinInstanceCounter map[string]uint64 `json:"builtin_instance_counter,omitempty"`
}

// Add accumulates other into r.
func (r *ExecutionResources) Add(other *ExecutionResources) {
	r.Steps += other.Steps
	r.MemoryHoles += other.MemoryHoles
	for builtin, count := range other.BuiltinInstanceCounter {
		if r.BuiltinInstanceCounter == nil {
			r.BuiltinInstanceCounter = make(map[string]uint64)
		}
		r.BuiltinInstanceCounter[builtin] += count
	}
}

// ResourcesManager is the running resource ledger of one transaction. It is
// the single piece of shared mutable state across a call tree: every nested
// scope holds it exclusively while running, enforced by the call-stack shape.
type ResourcesManager struct {
	resources      ExecutionResources
	syscallCounter map[string]uint64
}

func NewResourcesManager() *ResourcesManager {
	return &ResourcesManager{
		syscallCounter: make(map[string]uint64),
	}
}

// AddRun folds one VM run's counters into the ledger.
func (m *ResourcesManager) AddRun(result *vm.RunResult) {
	m.resources.Add(&ExecutionResources{
		Steps:                  result.Steps,
		MemoryHoles:            result.MemoryHoles,
		BuiltinInstanceCounter: result.BuiltinCounts,
	})
}

// IncrementSyscall counts one invocation of the named syscall.
func (m *ResourcesManager) IncrementSyscall(name string) {
	m.syscallCounter[name]++
}

// SyscallCount returns how often the named syscall ran.
func (m *ResourcesManager) SyscallCount(name string) uint64 {
	return m.syscallCounter[name]
}

// Total returns a copy of the accumulated resources.
func (m *ResourcesManager) Total() ExecutionResources {
	total := ExecutionResources{
		Steps:       m.resources.Steps,
		MemoryHoles: m.resources.MemoryHoles,
	}
	if m.resources.BuiltinInstanceCounter != nil {
		total.BuiltinInstanceCounter = maps.Clone(m.resources.BuiltinInstanceCounter)
	}
	return total
}

// SyscallCounter returns a copy of the per-syscall invocation counts.
func (m *ResourcesManager) SyscallCounter() map[string]uint64 {
	return maps.Clone(m.syscallCounter)
}
