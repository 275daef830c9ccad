package core

import (
	"fmt"
	"io"
	"log/slog"
)

// A Checker is one validation pass over catalog packages. Implementations
// are constructed unconfigured and brought up by Initialize; CheckPackage
// is called once per package, WriteResult once per finding, and Finish
// exactly once at end-of-run to flush statistics and close sinks.
type Checker interface {
	Initialize(run *RunContext) error
	CheckPackage(pkg *Package) error
	WriteResult(pkg *Package, finding Finding) error
	Finish() error
}

// A Finding is one per-failure result produced by a checker, before it is
// fanned out to contacts.
type Finding interface {
	Message() string
}

// A MessageSink receives the per-contact message rows the checkers emit.
// A run owns exactly one sink, shared between its active checkers, so all
// of their rows land in a single message file.
type MessageSink interface {
	Write(row MessageRow) error
}

// RunContext carries the run-global collaborators that every checker
// needs: the structured logger, the operator-facing echo stream, the
// site URL for building dataset links, the run's output directory, the
// read-only contact table, and the shared message sink.
type RunContext struct {
	Logger   *slog.Logger
	Echo     io.Writer
	SiteURL  string
	RunDir   string
	Contacts ContactTable
	Messages MessageSink
	// the configured fallback recipient; keeps its name when its address
	// turns up in a send_to override
	Default Contact
}

// logs the given message and echoes it to the operator stream; these runs
// are unattended batch jobs whose only real-time observability is the
// console and the log
func (run *RunContext) LogAndEcho(msg string) {
	run.Logger.Info(msg)
	fmt.Fprintln(run.Echo, msg)
}

// like LogAndEcho, but for anomalies
func (run *RunContext) LogAndEchoError(msg string) {
	run.Logger.Error(msg)
	fmt.Fprintln(run.Echo, msg)
}

// resolves the contacts for one package: a pre-computed send_to override
// list is used verbatim (each address acting as a self-named contact,
// except the default recipient, which is addressed by its configured
// name), otherwise the package's own declared contact points apply
func (run *RunContext) ResolveContacts(pkg *Package) []Contact {
	if len(pkg.SendTo) > 0 {
		contacts := make([]Contact, 0, len(pkg.SendTo))
		for _, email := range pkg.SendTo {
			contact := Contact{Name: email, Email: email}
			if email == run.Default.Email && run.Default.Name != "" {
				contact.Name = run.Default.Name
			}
			contacts = append(contacts, contact)
		}
		return contacts
	}
	contacts := make([]Contact, 0, len(pkg.ContactPoints))
	for _, point := range pkg.ContactPoints {
		contacts = append(contacts, Contact{Name: point.Name, Email: point.Email})
	}
	return contacts
}
