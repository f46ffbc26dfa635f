// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package procsched

import "fmt"

// Policy selects which of the four scheduling disciplines a Kernel uses.
// Exactly one must be selected at construction — there is no live
// switching at runtime (spec Non-goals).
type Policy int

const (
	// PolicyRR is round-robin: first RUNNABLE slot in table order.
	PolicyRR Policy = iota
	// PolicyFCFS dispatches the RUNNABLE process with the smallest ctime.
	PolicyFCFS
	// PolicyPBS dispatches the RUNNABLE process with the smallest
	// priority value (ties broken by table order).
	PolicyPBS
	// PolicyMLFQ dispatches from the lowest non-empty of MLFQSIZE ring
	// queues, after aging.
	PolicyMLFQ
)

func (p Policy) String() string {
	switch p {
	case PolicyRR:
		return "round-robin"
	case PolicyFCFS:
		return "FCFS"
	case PolicyPBS:
		return "priority-based"
	case PolicyMLFQ:
		return "MLFQ"
	default:
		return "unknown"
	}
}

// maxMLFQLevels bounds the array backing mlfqQuantum; MLFQSize must not
// exceed it. It is a generous ceiling, not a tunable.
const maxMLFQLevels = 16

// config holds the resolved, immutable configuration of a Kernel.
type config struct {
	policy              Policy
	nproc               int
	ncpu                int
	nofile              int
	mlfqSize            int
	kstackSize          int
	agingThresholdTicks uint64
	mlfqQuantum         [maxMLFQLevels]int
	logger              Logger
	mem                 MemoryCollaborator
	fs                  FSCollaborator
	trap                TrapCollaborator
}

// Option configures a Kernel at construction. Options are applied in
// order; later options win if they touch the same field.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithPolicy selects the scheduling discipline. Default: PolicyRR.
func WithPolicy(p Policy) Option {
	return optionFunc(func(c *config) error {
		c.policy = p
		return nil
	})
}

// WithNPROC sets the maximum number of concurrent process-table slots.
// Default: 64.
func WithNPROC(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("procsched: NPROC must be positive, got %d", n)
		}
		c.nproc = n
		return nil
	})
}

// WithNCPU sets the number of per-CPU dispatch loops Run starts.
// Default: 1.
func WithNCPU(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("procsched: NCPU must be positive, got %d", n)
		}
		c.ncpu = n
		return nil
	})
}

// WithNOFILE sets the size of each process's open-file table. Default: 16.
func WithNOFILE(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("procsched: NOFILE must be positive, got %d", n)
		}
		c.nofile = n
		return nil
	})
}

// WithMLFQSize sets the number of MLFQ ring queues (ignored for other
// policies). Default: 5.
func WithMLFQSize(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 || n > maxMLFQLevels {
			return fmt.Errorf("procsched: MLFQSIZE must be in [1,%d], got %d", maxMLFQLevels, n)
		}
		c.mlfqSize = n
		return nil
	})
}

// WithKSTACKSIZE sets the simulated kernel stack size handed to
// MemoryCollaborator.AllocKStack. Default: 4096.
func WithKSTACKSIZE(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("procsched: KSTACKSIZE must be positive, got %d", n)
		}
		c.kstackSize = n
		return nil
	})
}

// WithAgingThreshold sets the number of ticks a RUNNABLE process may wait
// in one MLFQ queue before AgeProcesses promotes it — the policy this
// port chose to fill the original's empty age_processes body (spec §9).
// Default: 30.
func WithAgingThreshold(ticks uint64) Option {
	return optionFunc(func(c *config) error {
		c.agingThresholdTicks = ticks
		return nil
	})
}

// WithMLFQQuantum sets the time-slice quantum (in ticks) for one MLFQ
// level. Exceeding it is the caller's cue to call Task.Punisher; the
// dispatcher itself does not read a clock.
func WithMLFQQuantum(level, ticks int) Option {
	return optionFunc(func(c *config) error {
		if level < 0 || level >= maxMLFQLevels {
			return fmt.Errorf("procsched: MLFQ level out of range: %d", level)
		}
		c.mlfqQuantum[level] = ticks
		return nil
	})
}

// WithLogger attaches a Logger to this Kernel, overriding the package
// global installed via SetLogger.
func WithLogger(l Logger) Option {
	return optionFunc(func(c *config) error {
		c.logger = l
		return nil
	})
}

// WithMemoryCollaborator supplies the VM collaborator used for page
// directories and kernel stacks (§6). Default: NullMemoryCollaborator.
func WithMemoryCollaborator(m MemoryCollaborator) Option {
	return optionFunc(func(c *config) error {
		c.mem = m
		return nil
	})
}

// WithFSCollaborator supplies the filesystem collaborator used for open
// files and cwd (§6). Default: NullFSCollaborator.
func WithFSCollaborator(fs FSCollaborator) Option {
	return optionFunc(func(c *config) error {
		c.fs = fs
		return nil
	})
}

// WithTrapCollaborator supplies the trap-return trampoline (§6). Default:
// NullTrapCollaborator.
func WithTrapCollaborator(t TrapCollaborator) Option {
	return optionFunc(func(c *config) error {
		c.trap = t
		return nil
	})
}

// resolveConfig applies opts over the documented defaults.
func resolveConfig(opts []Option) (*config, error) {
	c := &config{
		policy:              PolicyRR,
		nproc:               64,
		ncpu:                1,
		nofile:              16,
		mlfqSize:            5,
		kstackSize:          4096,
		agingThresholdTicks: 30,
		mem:                 NullMemoryCollaborator{},
		fs:                  NullFSCollaborator{},
		trap:                NullTrapCollaborator{},
	}
	for i := range c.mlfqQuantum {
		c.mlfqQuantum[i] = 8
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = getGlobalLogger()
	}
	return c, nil
}
