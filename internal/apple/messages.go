// Copyright 2025 Joseph Cumines
//
// Messages.app adapter (send path; reads go through internal/store)

package apple

import (
	"context"
	"fmt"
)

const sendMessageScriptFmt = `(() => {
	const app = Application('Messages');
	const handle = %s;
	const text = %s;
	const service = app.services.whose({serviceType: 'iMessage'})()[0] || app.services()[0];
	if (!service) {
		throw new Error('no messaging service available');
	}
	const buddy = service.participants.whose({handle: handle})()[0] || app.participant(handle, {service: service});
	app.send(text, {to: buddy});
	return JSON.stringify({sent: true, handle: handle});
})()`

// MessagesClient sends messages through Messages.app. Reading conversation
// history does not go through automation at all; see store.MessagesStore.
type MessagesClient struct {
	runner ScriptRunner
}

// NewMessagesClient creates a messages adapter backed by the given runner.
func NewMessagesClient(runner ScriptRunner) *MessagesClient {
	return &MessagesClient{runner: runner}
}

// SendMessage sends text to the given handle (phone number or email).
func (c *MessagesClient) SendMessage(ctx context.Context, handle, text string) error {
	script := fmt.Sprintf(sendMessageScriptFmt, jsArg(handle), jsArg(text))
	var result struct {
		Sent bool `json:"sent"`
	}
	if err := runJSON(ctx, c.runner, "messages.send", script, &result); err != nil {
		return err
	}
	if !result.Sent {
		return &Error{Op: "messages.send", Detail: "message was not sent", Kind: KindScript}
	}
	return nil
}
