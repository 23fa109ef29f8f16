package vos

import "github.com/sigil-lang/sigil/core/config"

// Utsname mirrors the POSIX utsname structure.
type Utsname struct {
	Sysname    string // OS name e.g. "Linux".
	Nodename   string // Hostname of the machine on one of its networks.
	Release    string // OS release e.g. "5.15.0-89-generic".
	Version    string // OS version e.g. "#99-Ubuntu SMP Thu Nov 2 10:21:23 UTC 2023".
	Machine    string // Hardware e.g. "x86_64".
	DomainName string // NIS or YP domain name.
}

// NewUtsname builds the sandbox identity from the configuration.
func NewUtsname(cfg *config.Configuration) Utsname {
	return Utsname{
		Sysname:    cfg.Uname.KernelName,
		Nodename:   cfg.Uname.Nodename,
		Release:    cfg.Uname.KernelRelease,
		Version:    cfg.Uname.KernelVersion,
		Machine:    cfg.Uname.HardwarePlatform,
		DomainName: cfg.Uname.Domainname,
	}
}
