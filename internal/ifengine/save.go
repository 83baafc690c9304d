package ifengine

import (
	"fmt"
	"os"
)

// Save appends the canonical textual form of entry id (or every entry, if
// all is true) to path, one line per entry, for the `if save` / `every
// save` commands (spec.md 4.8).
func (e *Engine) Save(id uint16, all bool, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	var targets []*Entry
	if all {
		targets = e.List()
	} else {
		ent, ok := e.Find(id)
		if !ok {
			return fmt.Errorf("no entry %d", id)
		}
		targets = []*Entry{ent}
	}

	for _, ent := range targets {
		if _, err := fmt.Fprintln(f, canonical(ent)); err != nil {
			return err
		}
	}
	return nil
}

func canonical(ent *Entry) string {
	verb := "if"
	if ent.Class == Periodic {
		verb = "every"
	}
	switch ent.Class {
	case RisingPin:
		return fmt.Sprintf("%s rising %d %s", verb, ent.Pin, maskClauses(ent)+" alias "+ent.AliasName)
	case FallingPin:
		return fmt.Sprintf("%s falling %d %s", verb, ent.Pin, maskClauses(ent)+" alias "+ent.AliasName)
	case Conditional:
		return fmt.Sprintf("if %spoll %d alias %s", maskClauses(ent), ent.PollIntervalMS, ent.AliasName)
	default:
		return fmt.Sprintf("every %d alias %s", ent.PollIntervalMS, ent.AliasName)
	}
}

func maskClauses(ent *Entry) string {
	s := ""
	if ent.HasHigh {
		s += fmt.Sprintf("high 0x%x ", ent.MustHigh)
	}
	if ent.HasLow {
		s += fmt.Sprintf("low 0x%x ", ent.MustLow)
	}
	return s
}
