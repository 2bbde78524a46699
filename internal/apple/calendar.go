// Copyright 2025 Joseph Cumines
//
// Calendar.app adapter

package apple

import (
	"context"
	"fmt"
	"time"
)

// CalendarEvent is one event occurrence. Start and End are RFC 3339.
// Attendees holds the raw attendee email addresses as Calendar.app reports
// them; display-name enrichment happens at the tool layer.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type CalendarEvent struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Calendar  string   `json:"calendar"`
	Location  string   `json:"location,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Attendees []string `json:"attendees"`
}

// EventDraft is the input for creating an event.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type EventDraft struct {
	Title    string
	Calendar string
	Location string
	Notes    string
	Start    time.Time
	End      time.Time
}

const eventsBetweenScriptFmt = `(() => {
	const app = Application('Calendar');
	const from = new Date(%s);
	const to = new Date(%s);
	const query = %s.toLowerCase();
	const out = [];
	for (const cal of app.calendars()) {
		const events = cal.events.whose({
			_and: [
				{startDate: {_greaterThanEquals: from}},
				{startDate: {_lessThan: to}},
			],
		})();
		for (const ev of events) {
			const title = ev.summary() || '';
			if (query !== '' && !title.toLowerCase().includes(query)) {
				continue;
			}
			out.push({
				id: ev.uid(),
				title: title,
				calendar: cal.name(),
				location: ev.location() || '',
				notes: ev.description() || '',
				start: ev.startDate().toISOString(),
				end: ev.endDate().toISOString(),
				attendees: ev.attendees().map(a => a.email() || '').filter(e => e !== ''),
			});
		}
	}
	return JSON.stringify(out);
})()`

const createEventScriptFmt = `(() => {
	const app = Application('Calendar');
	const calName = %s;
	const cal = calName === '' ? app.calendars()[0] : app.calendars.whose({name: calName})()[0];
	if (!cal) {
		throw new Error('calendar not found: ' + calName);
	}
	const props = {
		summary: %s,
		startDate: new Date(%s),
		endDate: new Date(%s),
	};
	const location = %s;
	if (location !== '') { props.location = location; }
	const notes = %s;
	if (notes !== '') { props.description = notes; }
	const ev = app.Event(props);
	cal.events.push(ev);
	return JSON.stringify({
		id: ev.uid(),
		title: ev.summary(),
		calendar: cal.name(),
		start: ev.startDate().toISOString(),
		end: ev.endDate().toISOString(),
		attendees: [],
	});
})()`

// CalendarClient reads and creates events through Calendar.app.
type CalendarClient struct {
	runner ScriptRunner
}

// NewCalendarClient creates a calendar adapter backed by the given runner.
func NewCalendarClient(runner ScriptRunner) *CalendarClient {
	return &CalendarClient{runner: runner}
}

// EventsBetween returns events starting within [from, to).
func (c *CalendarClient) EventsBetween(ctx context.Context, from, to time.Time) ([]CalendarEvent, error) {
	return c.events(ctx, "calendar.events", from, to, "")
}

// SearchEvents returns events starting within [from, to) whose title contains
// query, case-insensitively.
func (c *CalendarClient) SearchEvents(ctx context.Context, query string, from, to time.Time) ([]CalendarEvent, error) {
	return c.events(ctx, "calendar.search", from, to, query)
}

func (c *CalendarClient) events(ctx context.Context, op string, from, to time.Time, query string) ([]CalendarEvent, error) {
	script := fmt.Sprintf(eventsBetweenScriptFmt,
		jsArg(from.UTC().Format(time.RFC3339)),
		jsArg(to.UTC().Format(time.RFC3339)),
		jsArg(query))
	var events []CalendarEvent
	if err := runJSON(ctx, c.runner, op, script, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CreateEvent creates an event and returns its assigned identity.
func (c *CalendarClient) CreateEvent(ctx context.Context, draft EventDraft) (*CalendarEvent, error) {
	script := fmt.Sprintf(createEventScriptFmt,
		jsArg(draft.Calendar),
		jsArg(draft.Title),
		jsArg(draft.Start.UTC().Format(time.RFC3339)),
		jsArg(draft.End.UTC().Format(time.RFC3339)),
		jsArg(draft.Location),
		jsArg(draft.Notes))
	var created CalendarEvent
	if err := runJSON(ctx, c.runner, "calendar.create", script, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
