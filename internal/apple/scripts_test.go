// Copyright 2025 Joseph Cumines

package apple

import (
	"fmt"
	"strings"
	"testing"
)

// An arrow IIFE only yields a value through an explicit return; a bare
// JSON.stringify expression as the last statement evaluates the whole script
// to undefined and osascript prints nothing. Every embedded script must
// therefore return its JSON payload.
func TestScriptsReturnJSONPayload(t *testing.T) {
	scripts := map[string]string{
		"contacts.fetch_all": fetchAllContactsScript,
		"contacts.search":    fmt.Sprintf(searchContactsScriptFmt, jsArg("q")),
		"messages.send":      fmt.Sprintf(sendMessageScriptFmt, jsArg("h"), jsArg("t")),
		"mail.mailboxes":     listMailboxesScript,
		"mail.send":          fmt.Sprintf(sendMailScriptFmt, jsArg("s"), jsArg("b"), jsArg([]string{"a"}), jsArg([]string{})),
		"notes.list":         fmt.Sprintf(listNotesScriptFmt, jsArg("")),
		"notes.search":       fmt.Sprintf(searchNotesScriptFmt, jsArg("q")),
		"notes.create":       fmt.Sprintf(createNoteScriptFmt, jsArg(""), jsArg("n"), jsArg("b")),
		"reminders.list":     fmt.Sprintf(listRemindersScriptFmt, jsArg("")),
		"reminders.search":   fmt.Sprintf(searchRemindersScriptFmt, jsArg("q")),
		"reminders.create":   fmt.Sprintf(createReminderScriptFmt, jsArg(""), jsArg("n"), jsArg(""), jsArg("")),
		"calendar.events":    fmt.Sprintf(eventsBetweenScriptFmt, jsArg("a"), jsArg("b"), jsArg("")),
		"calendar.create":    fmt.Sprintf(createEventScriptFmt, jsArg(""), jsArg("t"), jsArg("a"), jsArg("b"), jsArg(""), jsArg("")),
	}

	for op, script := range scripts {
		if !strings.Contains(script, "return JSON.stringify(") {
			t.Errorf("%s: script does not return its JSON payload", op)
		}
		if strings.Contains(script, "\tJSON.stringify(") {
			t.Errorf("%s: script has a bare JSON.stringify statement", op)
		}
		if !strings.HasSuffix(strings.TrimSpace(script), "})()") {
			t.Errorf("%s: script is not an invoked IIFE", op)
		}
	}
}
