package procsched

// The types in this file are the boundary named in spec §6: virtual
// memory, the file system, and the trap-return trampoline are external
// to this package's core, so the core only depends on the small
// interfaces below rather than concrete implementations.

// PageDirHandle is an opaque page-directory handle, owned by a
// MemoryCollaborator. The core never dereferences it.
type PageDirHandle any

// KStackHandle is an opaque kernel-stack handle, owned by a
// MemoryCollaborator.
type KStackHandle any

// FileHandle is an opaque open-file handle, owned by an FSCollaborator.
type FileHandle any

// InodeHandle is an opaque inode handle (used for cwd), owned by an
// FSCollaborator.
type InodeHandle any

// MemoryCollaborator is consumed by allocProc, UserInit, Fork, GrowProc,
// Wait/WaitX and dispatchLoop for everything spec §6 lists under "VM":
// setupkvm, inituvm,
// copyuvm, allocuvm, deallocuvm, freevm, switchuvm, switchkvm, kalloc,
// kfree.
type MemoryCollaborator interface {
	// SetupKVM builds a fresh page directory with the kernel mapped in.
	SetupKVM() (PageDirHandle, error)
	// InitUVM maps a first user image (e.g. initcode) into pd.
	InitUVM(pd PageDirHandle, image []byte) error
	// CopyUVM duplicates pd (and the sz bytes of user memory it maps) for
	// a forked child.
	CopyUVM(pd PageDirHandle, sz uint64) (PageDirHandle, error)
	// AllocUVM grows pd's user memory from oldSz to newSz, returning the
	// new size.
	AllocUVM(pd PageDirHandle, oldSz, newSz uint64) (uint64, error)
	// DeallocUVM shrinks pd's user memory from oldSz to newSz, returning
	// the new size.
	DeallocUVM(pd PageDirHandle, oldSz, newSz uint64) (uint64, error)
	// FreeVM releases pd and everything it maps.
	FreeVM(pd PageDirHandle)
	// SwitchUVM installs p's page directory on the current CPU.
	SwitchUVM(p *Proc)
	// SwitchKVM reinstalls the kernel-only page directory on the current
	// CPU (called when a dispatch loop has no process running).
	SwitchKVM()
	// AllocKStack returns a fresh kernel stack of the given size (the
	// configured KSTACKSIZE).
	AllocKStack(size int) (KStackHandle, error)
	// FreeKStack releases a kernel stack returned by AllocKStack.
	FreeKStack(KStackHandle)
}

// FSCollaborator is consumed by Fork, Exit and userinit for everything
// spec §6 lists under "Filesystem": filedup, fileclose, idup, iput,
// namei, begin_op, end_op.
type FSCollaborator interface {
	FileDup(FileHandle) FileHandle
	FileClose(FileHandle)
	IDup(InodeHandle) InodeHandle
	IPut(InodeHandle)
	Namei(path string) (InodeHandle, error)
	BeginOp()
	EndOp()
}

// TrapCollaborator models the trapret trampoline: the first thing a
// forked process's goroutine does after forkret is hand control to this
// collaborator so it can "return to user space". The default
// implementation is a no-op, since there is no real trap frame to pop in
// this simulation.
type TrapCollaborator interface {
	TrapReturn(p *Proc)
}

// NullMemoryCollaborator is the default MemoryCollaborator: it hands out
// unique opaque integer handles and never fails. Suitable for tests,
// where there is no real address space to manage.
type NullMemoryCollaborator struct{}

type nullHandle uint64

var nullHandleCounter uint64

func nextNullHandle() nullHandle {
	nullHandleCounter++
	return nullHandle(nullHandleCounter)
}

func (NullMemoryCollaborator) SetupKVM() (PageDirHandle, error) { return nextNullHandle(), nil }

func (NullMemoryCollaborator) InitUVM(PageDirHandle, []byte) error { return nil }

func (NullMemoryCollaborator) CopyUVM(PageDirHandle, uint64) (PageDirHandle, error) {
	return nextNullHandle(), nil
}

func (NullMemoryCollaborator) AllocUVM(_ PageDirHandle, _, newSz uint64) (uint64, error) {
	return newSz, nil
}

func (NullMemoryCollaborator) DeallocUVM(_ PageDirHandle, _, newSz uint64) (uint64, error) {
	return newSz, nil
}

func (NullMemoryCollaborator) FreeVM(PageDirHandle) {}

func (NullMemoryCollaborator) SwitchUVM(*Proc) {}

func (NullMemoryCollaborator) SwitchKVM() {}

func (NullMemoryCollaborator) AllocKStack(int) (KStackHandle, error) { return nextNullHandle(), nil }

func (NullMemoryCollaborator) FreeKStack(KStackHandle) {}

// NullFSCollaborator is the default FSCollaborator: open-file and inode
// handles round-trip without reference counting.
type NullFSCollaborator struct{}

func (NullFSCollaborator) FileDup(h FileHandle) FileHandle { return h }

func (NullFSCollaborator) FileClose(FileHandle) {}

func (NullFSCollaborator) IDup(h InodeHandle) InodeHandle { return h }

func (NullFSCollaborator) IPut(InodeHandle) {}

func (NullFSCollaborator) Namei(path string) (InodeHandle, error) { return path, nil }

func (NullFSCollaborator) BeginOp() {}

func (NullFSCollaborator) EndOp() {}

// NullTrapCollaborator does nothing on trap return.
type NullTrapCollaborator struct{}

func (NullTrapCollaborator) TrapReturn(*Proc) {}
