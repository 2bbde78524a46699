// Copyright 2025 Joseph Cumines
//
// Notes.app adapter

package apple

import (
	"context"
	"fmt"
)

// Note is one note. Body is the plain-text content as Notes.app reports it.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Note struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Body     string `json:"body,omitempty"`
	Folder   string `json:"folder"`
	Modified string `json:"modified,omitempty"`
}

// NoteDraft is the input for creating a note.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type NoteDraft struct {
	Name   string
	Body   string
	Folder string
}

const listNotesScriptFmt = `(() => {
	const app = Application('Notes');
	const folderName = %s;
	const folders = folderName === '' ? app.folders() : app.folders.whose({name: folderName})();
	const out = [];
	for (const folder of folders) {
		for (const n of folder.notes()) {
			out.push({
				id: n.id(),
				name: n.name() || '',
				body: n.plaintext() || '',
				folder: folder.name(),
				modified: n.modificationDate() ? n.modificationDate().toISOString() : '',
			});
		}
	}
	return JSON.stringify(out);
})()`

const searchNotesScriptFmt = `(() => {
	const app = Application('Notes');
	const query = %s.toLowerCase();
	const out = [];
	for (const folder of app.folders()) {
		for (const n of folder.notes()) {
			const name = n.name() || '';
			const body = n.plaintext() || '';
			if (!name.toLowerCase().includes(query) && !body.toLowerCase().includes(query)) {
				continue;
			}
			out.push({
				id: n.id(),
				name: name,
				body: body,
				folder: folder.name(),
				modified: n.modificationDate() ? n.modificationDate().toISOString() : '',
			});
		}
	}
	return JSON.stringify(out);
})()`

const createNoteScriptFmt = `(() => {
	const app = Application('Notes');
	const folderName = %s;
	const folder = folderName === '' ? app.defaultAccount().folders()[0] : app.folders.whose({name: folderName})()[0];
	if (!folder) {
		throw new Error('notes folder not found: ' + folderName);
	}
	const n = app.Note({name: %s, body: %s});
	folder.notes.push(n);
	return JSON.stringify({id: n.id(), name: n.name(), folder: folder.name()});
})()`

// NotesClient reads and creates notes through Notes.app.
type NotesClient struct {
	runner ScriptRunner
}

// NewNotesClient creates a notes adapter backed by the given runner.
func NewNotesClient(runner ScriptRunner) *NotesClient {
	return &NotesClient{runner: runner}
}

// ListNotes returns notes in the named folder, or in every folder when
// folderName is empty.
func (c *NotesClient) ListNotes(ctx context.Context, folderName string) ([]Note, error) {
	script := fmt.Sprintf(listNotesScriptFmt, jsArg(folderName))
	var notes []Note
	if err := runJSON(ctx, c.runner, "notes.list", script, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// SearchNotes returns notes whose name or body contains query,
// case-insensitively.
func (c *NotesClient) SearchNotes(ctx context.Context, query string) ([]Note, error) {
	script := fmt.Sprintf(searchNotesScriptFmt, jsArg(query))
	var notes []Note
	if err := runJSON(ctx, c.runner, "notes.search", script, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// CreateNote creates a note and returns its assigned identity.
func (c *NotesClient) CreateNote(ctx context.Context, draft NoteDraft) (*Note, error) {
	script := fmt.Sprintf(createNoteScriptFmt, jsArg(draft.Folder), jsArg(draft.Name), jsArg(draft.Body))
	var created Note
	if err := runJSON(ctx, c.runner, "notes.create", script, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
