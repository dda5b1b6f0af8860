package orchestrator

// Body registers a phase's program steps against the bot. Unconditional
// phases run their body once at build time; conditional phases run it at
// the guard step's position during execution.
type Body func(b *Bot)

// Phase is an immutable descriptor for one named unit of program-building
// logic. Phases are referenced by the orchestrator, never copied; their
// names double as loop and recovery targets.
type Phase struct {
	// Name is the display name, unique within a bot. It becomes the
	// phase's header and is what loop/recovery targets refer to.
	Name string

	// Body registers the phase's steps.
	Body Body

	// Condition, when set, defers Body to runtime: the phase registers a
	// single guard step that evaluates the predicate and only then lets
	// Body expand the program in place. A false predicate skips the phase
	// entirely.
	Condition func() bool

	// Template, when set, inserts a template switch before the phase body.
	Template string
}
