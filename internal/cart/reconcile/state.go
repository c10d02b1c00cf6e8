package reconcile

import (
	"storefront/internal/cart/gateway"
	"storefront/internal/domain"
)

type Mode int

const (
	// ModeGuest keeps the cart in local storage only.
	ModeGuest Mode = iota
	// ModeAuthenticatedSyncing is signed in with the first remote fetch not yet reconciled.
	ModeAuthenticatedSyncing
	// ModeAuthenticatedSynced mirrors every mutation to the remote cart.
	ModeAuthenticatedSynced
)

func (m Mode) String() string {
	switch m {
	case ModeGuest:
		return "guest"
	case ModeAuthenticatedSyncing:
		return "authenticated_syncing"
	case ModeAuthenticatedSynced:
		return "authenticated_synced"
	default:
		return "unknown"
	}
}

// State is the complete reconciliation state of one page session. Epoch
// increases on every change to Lines.
type State struct {
	Mode          Mode
	UserID        string
	GuestActivity bool
	Lines         domain.Snapshot
	Epoch         uint64
}

func (s State) Identity() domain.Identity {
	if s.Mode == ModeGuest {
		return domain.Guest()
	}
	return domain.Authenticated(s.UserID)
}

func (s State) clone() State {
	s.Lines = s.Lines.Clone()
	return s
}

type CommandKind int

const (
	PersistLocal CommandKind = iota
	FetchRemote
	UpsertRemote
	DeleteRemote
	ReplaceRemote
)

func (k CommandKind) String() string {
	switch k {
	case PersistLocal:
		return "persist_local"
	case FetchRemote:
		return "fetch_remote"
	case UpsertRemote:
		return "upsert_remote"
	case DeleteRemote:
		return "delete_remote"
	case ReplaceRemote:
		return "replace_remote"
	default:
		return "unknown"
	}
}

// Command is a side effect requested by a transition.
//
//	PersistLocal   Lines
//	FetchRemote    UserID, Epoch (state epoch when the fetch was issued)
//	UpsertRemote   UserID, Line
//	DeleteRemote   UserID, Line (ProductID and Variant)
//	ReplaceRemote  UserID, Lines
type Command struct {
	Kind   CommandKind
	UserID string
	Line   domain.CartLine
	Lines  domain.Snapshot
	Epoch  uint64
}

type Op int

const (
	OpAdd Op = iota
	OpSetQuantity
	OpAdjust
	OpRemove
	OpClear
)

// Mutation is a user edit of the cart. Line is used by OpAdd; Key by the
// per-line operations; Quantity is the target for OpSetQuantity and the
// delta for OpAdjust.
type Mutation struct {
	Op       Op
	Line     domain.CartLine
	Key      string
	Quantity int
}

// Initial is the state at page load.
func Initial(lines domain.Snapshot) State {
	return State{Mode: ModeGuest, Lines: lines.Clone()}
}

// ApplyMutation applies m to the snapshot. The bool is false when nothing
// changed, in which case no commands are returned.
func ApplyMutation(s State, m Mutation, maxQty int) (State, []Command, bool) {
	lines, key, changed := mutate(s.Lines, m, maxQty)
	if !changed {
		return s, nil, false
	}
	next := s.clone()
	next.Lines = lines
	next.Epoch++

	cmds := []Command{{Kind: PersistLocal, Lines: lines.Clone()}}
	switch s.Mode {
	case ModeGuest, ModeAuthenticatedSyncing:
		next.GuestActivity = true
	case ModeAuthenticatedSynced:
		cmds = append(cmds, remoteCommands(s, next, m, key)...)
	}
	return next, cmds, true
}

func mutate(lines domain.Snapshot, m Mutation, maxQty int) (domain.Snapshot, string, bool) {
	switch m.Op {
	case OpAdd:
		return lines.Add(m.Line, maxQty), m.Line.Key(), true
	case OpSetQuantity:
		out, ok := lines.SetQuantity(m.Key, m.Quantity, maxQty)
		return out, m.Key, ok
	case OpAdjust:
		line, ok := lines.Find(m.Key)
		if !ok {
			return lines, m.Key, false
		}
		target := line.Quantity + m.Quantity
		if maxQty > 0 && target > maxQty {
			target = maxQty
		}
		if target == line.Quantity {
			return lines, m.Key, false
		}
		out, _ := lines.SetQuantity(m.Key, target, maxQty)
		return out, m.Key, true
	case OpRemove:
		out, ok := lines.Remove(m.Key)
		return out, m.Key, ok
	case OpClear:
		if len(lines) == 0 {
			return lines, "", false
		}
		return domain.Snapshot{}, "", true
	default:
		return lines, "", false
	}
}

func remoteCommands(prev, next State, m Mutation, key string) []Command {
	if m.Op == OpClear {
		return []Command{{Kind: ReplaceRemote, UserID: prev.UserID, Lines: domain.Snapshot{}}}
	}
	if line, ok := next.Lines.Find(key); ok {
		return []Command{{Kind: UpsertRemote, UserID: prev.UserID, Line: line}}
	}
	if line, ok := prev.Lines.Find(key); ok {
		return []Command{{Kind: DeleteRemote, UserID: prev.UserID, Line: line}}
	}
	return nil
}

// SignIn starts the sign-in transition for userID.
func SignIn(s State, userID string) (State, []Command) {
	if s.Mode != ModeGuest && s.UserID != userID {
		s, _ = SignOut(s)
	}
	next := s.clone()
	if next.Mode == ModeGuest {
		next.Mode = ModeAuthenticatedSyncing
		next.UserID = userID
	}
	return next, []Command{{Kind: FetchRemote, UserID: userID, Epoch: next.Epoch}}
}

// ApplyFetch reconciles the result of a FetchRemote issued at epoch.
// Results for another user or a signed-out session are ignored, as are
// unavailable results: the current snapshot is retained.
func ApplyFetch(s State, userID string, epoch uint64, res gateway.FetchResult) (State, []Command) {
	if s.Mode == ModeGuest || s.UserID != userID || !res.Available {
		return s, nil
	}
	next := s.clone()
	switch s.Mode {
	case ModeAuthenticatedSyncing:
		next.Mode = ModeAuthenticatedSynced
		next.Epoch++
		if !s.GuestActivity {
			next.Lines = res.Lines.Clone()
			return next, []Command{{Kind: PersistLocal, Lines: next.Lines.Clone()}}
		}
		next.Lines = domain.Merge(s.Lines, res.Lines)
		next.GuestActivity = false
		return next, []Command{
			{Kind: PersistLocal, Lines: next.Lines.Clone()},
			{Kind: ReplaceRemote, UserID: userID, Lines: next.Lines.Clone()},
		}
	case ModeAuthenticatedSynced:
		// Local edits made after the fetch was issued are already queued
		// for the remote and must not be overwritten by the older read.
		if s.Epoch != epoch {
			return s, nil
		}
		next.Lines = res.Lines.Clone()
		next.Epoch++
		return next, []Command{{Kind: PersistLocal, Lines: next.Lines.Clone()}}
	}
	return s, nil
}

// SignOut stops remote synchronization and keeps the current snapshot.
// GuestActivity survives: it is only cleared by a completed merge, so guest
// edits still pending one reach the next sign-in.
func SignOut(s State) (State, []Command) {
	next := s.clone()
	next.Mode = ModeGuest
	next.UserID = ""
	return next, nil
}
