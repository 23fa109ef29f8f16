package vos

import (
	"fmt"
	"os"
	"path"
	"runtime/debug"

	"github.com/sigil-lang/sigil/core/logger"
)

type TenantProcOS struct {
	*TenantOS

	VEnv

	VFS

	VIO

	// Path to the executable that started the process, errors if blank.
	ExecutablePath string
	// Args holds command line arguments, including the command as Args[0].
	ProcArgs []string
	// The process ID of the process.
	PID int
	// The user ID of the process.
	UID int
	// Dir specifies the working directory of the command.
	Dir string
	// Exec is the entry point of the process.
	Exec ProcessFunc
}

var _ VOS = (*TenantProcOS)(nil)

func (ea *TenantProcOS) Executable() (string, error) {
	if ea.ExecutablePath == "" {
		return "", os.ErrNotExist
	}

	return ea.ExecutablePath, nil
}

// Args implements VOS.Args.
func (ea *TenantProcOS) Args() []string {
	return ea.ProcArgs
}

// Getpid implements VOS.Getpid.
func (ea *TenantProcOS) Getpid() int {
	return ea.PID
}

// Getuid implements VOS.Getuid.
func (ea *TenantProcOS) Getuid() int {
	return ea.UID
}

// Getwd implements VOS.Getwd.
func (ea *TenantProcOS) Getwd() (dir string, err error) {
	return ea.Dir, nil
}

// Chdir implements VOS.Chdir.
func (ea *TenantProcOS) Chdir(dir string) (err error) {
	if !path.IsAbs(dir) {
		dir = path.Clean(path.Join(ea.Dir, dir))
	}

	stat, err := ea.Stat(dir)
	switch {
	case err != nil:
		return fmt.Errorf("%s: %v", dir, err)
	case !stat.IsDir():
		return fmt.Errorf("%s: Not a directory", dir)
	default:
		ea.Dir = dir
		return nil
	}
}

// LogInvalidInvocation implements VOS.LogInvalidInvocation.
func (ea *TenantProcOS) LogInvalidInvocation(err error) {
	ea.TenantOS.eventRecorder.Record(&logger.InvalidInvocation{
		Command: ea.ProcArgs,
		Error:   err.Error(),
	})
}

// LogFetch implements VOS.LogFetch.
func (ea *TenantProcOS) LogFetch(fetch *logger.Fetch) {
	if fetch.Command == nil {
		fetch.Command = ea.ProcArgs
	}
	ea.TenantOS.eventRecorder.Record(fetch)
}

// LogUnknownCommand implements VOS.LogUnknownCommand.
func (ea *TenantProcOS) LogUnknownCommand(cmd *logger.UnknownCommand) {
	ea.TenantOS.eventRecorder.Record(cmd)
}

// LogRunRecipe implements VOS.LogRunRecipe.
func (ea *TenantProcOS) LogRunRecipe(recipe *logger.RunRecipe) {
	ea.TenantOS.eventRecorder.Record(recipe)
}

// Run executes the process. Panics are contained to keep one buggy
// builtin from taking down the whole classroom.
func (ea *TenantProcOS) Run() (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			ea.TenantOS.eventRecorder.Record(&logger.Panic{
				Context:    fmt.Sprintf("%s: %v", ea.ExecutablePath, r),
				Stacktrace: string(debug.Stack()),
			})
			fmt.Fprintf(ea.Stderr(), "%s: internal error\n", path.Base(ea.ExecutablePath))
			exitCode = 2
		}
	}()

	return ea.Exec(ea)
}

type ProcAttr struct {
	// If Dir is non-empty, the child changes into the directory before
	// creating the process.
	Dir string
	// If Env is non-nil, it gives the environment variables for the
	// new process in the form returned by Environ.
	// If it is nil, the result of Environ will be used.
	Env []string

	// Files specifies the open files inherited by the new process.
	Files VIO
}

// StartProcess starts a new process with the program, arguments and attributes
// specified by name, argv and attr. The argv slice will become os.Args in the
// new process, so it normally starts with the program name.
func (ea *TenantProcOS) StartProcess(name string, argv []string, attr *ProcAttr) (VOS, error) {
	if attr == nil {
		attr = &ProcAttr{}
	}

	if argv == nil {
		argv = []string{name}
	}

	execFn := ea.TenantOS.sharedOS.GetProcess(name)
	if execFn == nil {
		return nil, fmt.Errorf("fork/exec %s: %w", name, ErrNotFound)
	}

	var env VEnv
	if attr.Env == nil {
		env = NewMapEnvFrom(ea.VEnv)
	} else {
		env = NewMapEnvFromEnvList(attr.Env)
	}

	out := &TenantProcOS{
		TenantOS:       ea.TenantOS,
		VEnv:           env,
		ExecutablePath: name,
		ProcArgs:       argv,
		PID:            ea.TenantOS.sharedOS.NextPID(),
		UID:            ea.UID,
		Dir:            ea.Dir,
		Exec:           execFn,
	}

	out.VFS = NewRelativeFs(ea.TenantOS.fs, out.Getwd)

	if attr.Files == nil {
		out.VIO = NewNullIO()
	} else {
		out.VIO = attr.Files
	}

	if attr.Dir != "" {
		if err := out.Chdir(attr.Dir); err != nil {
			return nil, err
		}
	}

	ea.TenantOS.eventRecorder.Record(&logger.RunCommand{
		Command:             argv,
		ResolvedCommandPath: name,
	})

	return out, nil
}
