// Package cpuload measures CPU usage during a benchmark run.
package cpuload

import (
	"errors"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// Usage is the CPU usage between two points in time.
type Usage struct {
	// System is the share of time all CPUs were busy, in percent.
	System float64
	// Process is the CPU time used by this process relative to wall time, in percent.
	// It exceeds 100 when more than one core is used.
	Process float64
}

// Sample is a starting point of a measurement.
type Sample struct {
	proc    *process.Process
	system  *cpu.TimesStat
	process *cpu.TimesStat
	at      time.Time
}

func systemTimes() (*cpu.TimesStat, error) {
	times, err := cpu.Times(false)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, errors.New("no CPU stats available")
	}
	return &times[0], nil
}

// Start takes the starting sample.
func Start() (*Sample, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	s := &Sample{proc: proc}

	s.system, err = systemTimes()
	if err != nil {
		return nil, err
	}

	s.process, err = proc.Times()
	if err != nil {
		return nil, err
	}

	s.at = time.Now()
	return s, nil
}

// Stop takes the ending sample and returns the usage since Start().
func (s *Sample) Stop() (Usage, error) {
	system, err := systemTimes()
	if err != nil {
		return Usage{}, err
	}

	proc, err := s.proc.Times()
	if err != nil {
		return Usage{}, err
	}

	return computeUsage(s.system, system, s.process, proc, time.Since(s.at))
}

func activeTime(t *cpu.TimesStat) float64 {
	return t.Total() - (t.Idle + t.Iowait)
}

func computeUsage(sysBegin, sysEnd, procBegin, procEnd *cpu.TimesStat, elapsed time.Duration) (Usage, error) {
	totalBegin := sysBegin.Total()
	totalEnd := sysEnd.Total()

	if totalEnd <= totalBegin {
		return Usage{}, errors.New("CPU stats did not advance")
	}

	u := Usage{
		System: (activeTime(sysEnd) - activeTime(sysBegin)) / (totalEnd - totalBegin) * 100,
	}

	if secs := elapsed.Seconds(); secs > 0 {
		procTime := (procEnd.User + procEnd.System) - (procBegin.User + procBegin.System)
		u.Process = procTime / secs * 100
	}

	return u, nil
}
