package lifecycle

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

const bytesPerMB = 1024 * 1024

// MemoryProbe reports the resident memory of the running process.
type MemoryProbe interface {
	RSSBytes() (uint64, error)
}

// ProcessMemory reads RSS of the current process through gopsutil.
type ProcessMemory struct {
	proc *process.Process
}

func NewProcessMemory() (*ProcessMemory, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open self process: %w", err)
	}
	return &ProcessMemory{proc: p}, nil
}

func (m *ProcessMemory) RSSBytes() (uint64, error) {
	info, err := m.proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("read memory info: %w", err)
	}
	return info.RSS, nil
}
