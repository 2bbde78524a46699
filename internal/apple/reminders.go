// Copyright 2025 Joseph Cumines
//
// Reminders.app adapter

package apple

import (
	"context"
	"fmt"
)

// Reminder is one reminder item. DueDate is RFC 3339 or empty when the
// reminder has no due date.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Reminder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Body      string `json:"body,omitempty"`
	List      string `json:"list"`
	DueDate   string `json:"dueDate,omitempty"`
	Completed bool   `json:"completed"`
}

// ReminderDraft is the input for creating a reminder.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type ReminderDraft struct {
	Name    string
	Body    string
	List    string
	DueDate string
}

const listRemindersScriptFmt = `(() => {
	const app = Application('Reminders');
	const listName = %s;
	const lists = listName === '' ? app.lists() : app.lists.whose({name: listName})();
	const out = [];
	for (const list of lists) {
		for (const r of list.reminders()) {
			out.push({
				id: r.id(),
				name: r.name() || '',
				body: r.body() || '',
				list: list.name(),
				dueDate: r.dueDate() ? r.dueDate().toISOString() : '',
				completed: r.completed(),
			});
		}
	}
	return JSON.stringify(out);
})()`

const searchRemindersScriptFmt = `(() => {
	const app = Application('Reminders');
	const query = %s.toLowerCase();
	const out = [];
	for (const list of app.lists()) {
		for (const r of list.reminders()) {
			const name = r.name() || '';
			const body = r.body() || '';
			if (!name.toLowerCase().includes(query) && !body.toLowerCase().includes(query)) {
				continue;
			}
			out.push({
				id: r.id(),
				name: name,
				body: body,
				list: list.name(),
				dueDate: r.dueDate() ? r.dueDate().toISOString() : '',
				completed: r.completed(),
			});
		}
	}
	return JSON.stringify(out);
})()`

const createReminderScriptFmt = `(() => {
	const app = Application('Reminders');
	const listName = %s;
	const list = listName === '' ? app.defaultList() : app.lists.whose({name: listName})()[0];
	if (!list) {
		throw new Error('reminder list not found: ' + listName);
	}
	const props = {name: %s};
	const body = %s;
	if (body !== '') { props.body = body; }
	const due = %s;
	if (due !== '') { props.dueDate = new Date(due); }
	const r = app.Reminder(props);
	list.reminders.push(r);
	return JSON.stringify({id: r.id(), name: r.name(), list: list.name()});
})()`

// RemindersClient reads and creates reminders through Reminders.app.
type RemindersClient struct {
	runner ScriptRunner
}

// NewRemindersClient creates a reminders adapter backed by the given runner.
func NewRemindersClient(runner ScriptRunner) *RemindersClient {
	return &RemindersClient{runner: runner}
}

// ListReminders returns reminders from the named list, or from every list
// when listName is empty.
func (c *RemindersClient) ListReminders(ctx context.Context, listName string) ([]Reminder, error) {
	script := fmt.Sprintf(listRemindersScriptFmt, jsArg(listName))
	var reminders []Reminder
	if err := runJSON(ctx, c.runner, "reminders.list", script, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// SearchReminders returns reminders whose name or body contains query,
// case-insensitively.
func (c *RemindersClient) SearchReminders(ctx context.Context, query string) ([]Reminder, error) {
	script := fmt.Sprintf(searchRemindersScriptFmt, jsArg(query))
	var reminders []Reminder
	if err := runJSON(ctx, c.runner, "reminders.search", script, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// CreateReminder creates a reminder and returns its assigned identity.
func (c *RemindersClient) CreateReminder(ctx context.Context, draft ReminderDraft) (*Reminder, error) {
	script := fmt.Sprintf(createReminderScriptFmt,
		jsArg(draft.List), jsArg(draft.Name), jsArg(draft.Body), jsArg(draft.DueDate))
	var created Reminder
	if err := runJSON(ctx, c.runner, "reminders.create", script, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
