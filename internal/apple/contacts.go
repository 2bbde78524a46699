// Copyright 2025 Joseph Cumines
//
// Contacts.app adapter (identity source)

package apple

import (
	"context"
	"fmt"
)

// Contact is one person from the Contacts database, with every phone number
// and email address attached to the card.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Contact struct {
	ID        string   `json:"id"`
	FullName  string   `json:"fullName"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Phones    []string `json:"phones"`
	Emails    []string `json:"emails"`
}

// fetchAllContactsScript dumps the entire address book. This is a single
// expensive Apple event round trip; the caller is expected to cache the
// result rather than invoking it per lookup.
const fetchAllContactsScript = `(() => {
	const app = Application('Contacts');
	const people = app.people();
	const out = [];
	for (const p of people) {
		out.push({
			id: p.id(),
			fullName: p.name() || '',
			firstName: p.firstName() || '',
			lastName: p.lastName() || '',
			phones: p.phones().map(ph => ph.value() || '').filter(v => v !== ''),
			emails: p.emails().map(e => e.value() || '').filter(v => v !== ''),
		});
	}
	return JSON.stringify(out);
})()`

// searchContactsScript filters server-side on the name property, so the
// returned set is small even on large address books.
const searchContactsScriptFmt = `(() => {
	const app = Application('Contacts');
	const query = %s;
	const people = app.people.whose({name: {_contains: query}})();
	const out = [];
	for (const p of people) {
		out.push({
			id: p.id(),
			fullName: p.name() || '',
			firstName: p.firstName() || '',
			lastName: p.lastName() || '',
			phones: p.phones().map(ph => ph.value() || '').filter(v => v !== ''),
			emails: p.emails().map(e => e.value() || '').filter(v => v !== ''),
		});
	}
	return JSON.stringify(out);
})()`

// ContactsClient reads the Contacts database through Contacts.app.
type ContactsClient struct {
	runner ScriptRunner
}

// NewContactsClient creates a contacts adapter backed by the given runner.
func NewContactsClient(runner ScriptRunner) *ContactsClient {
	return &ContactsClient{runner: runner}
}

// FetchAllContacts returns every contact card. This is slow (seconds to tens
// of seconds) and should only be called to build or refresh a cache.
func (c *ContactsClient) FetchAllContacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	if err := runJSON(ctx, c.runner, "contacts.fetch_all", fetchAllContactsScript, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// SearchContactsByName returns contacts whose name contains query.
func (c *ContactsClient) SearchContactsByName(ctx context.Context, query string) ([]Contact, error) {
	script := fmt.Sprintf(searchContactsScriptFmt, jsArg(query))
	var contacts []Contact
	if err := runJSON(ctx, c.runner, "contacts.search", script, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}
