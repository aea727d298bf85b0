package convert

// ActionKind tags the variants of Action.
type ActionKind int

const (
	// ActionRename moves a folder (or one of inbox's special dirs) from
	// Source to Path.
	ActionRename ActionKind = iota
	// ActionDeleteIndexFile removes a vendor index file at Path.
	ActionDeleteIndexFile
	// ActionRemoveDirIfEmpty removes the directory at Path, but only when
	// it is empty at execution time.
	ActionRemoveDirIfEmpty
)

// Action is a single planned filesystem mutation. Actions are computed up
// front and consumed exactly once, in order.
type Action struct {
	Kind   ActionKind
	Source string // set for renames only
	Path   string // rename destination, file to delete, or directory to remove
}

// Plan is the ordered sequence of actions converting one mailbox tree.
// Building a plan never mutates the filesystem; a plan that fails to build
// (missing root, name collision, IO error) produces no actions at all.
type Plan struct {
	Root    string
	Folders int // folders that will be renamed
	Actions []Action
}

// Empty reports whether there is nothing to do.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}

func (p *Plan) add(a Action) {
	p.Actions = append(p.Actions, a)
}
